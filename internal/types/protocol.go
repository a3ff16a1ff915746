package types

// Client -> Server (websocket, GET /ws?session=ID)
// Every message may carry request_id, echoed in the Ack or Error reply.
//
// RegisterAthlete:
//   athlete: { id, name, country, team_id?, weight_category, start_number, lot_number? }
//
// MarkWeighedIn:
//   athlete_id: string
//   body_weight: number
//   opening_snatch?: number
//   opening_clean_jerk?: number
//
// DeclareWeight:
//   athlete_id: string
//   lift_type: "snatch" | "clean_and_jerk"
//   attempt_number: 1 | 2 | 3
//   weight: number
//
// RequestWeightChange: same fields as DeclareWeight
//
// JudgeAttempt:
//   attempt_id: string  // "<athlete>/<lift>/<n>"
//   result: "good" | "no_lift" | "not_attempted"
//
// TransitionPhase:
//   target: phase
//
// ToggleDisqualification:
//   athlete_id: string
//   is_disqualified: boolean
//
// AssignMedal:
//   athlete_id: string
//   medal: "gold" | "silver" | "bronze" | ""
//
// Clock:
//   action: "start" | "pause" | "reset"
//
// Common: actor, reason?, expected_version?, override?, override_pin?

// Server -> Client
// StateSnapshot: version, state, view { phase, locked_phase, current_lift, next,
//   rankings, medal_table, timer_default_sec }, timer
//
// TimerTick: version, timer { duration_sec, remaining_sec, running }
//
// Ack: request_id, version, events
//
// Error: request_id, code, error
