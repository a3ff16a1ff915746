package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/liftmeet-backend/internal/engine"
)

type SessionRecord struct {
	ID          string   `gorm:"primaryKey;size:64"`
	Gender      string   `gorm:"size:16;not null"`
	Categories  []string `gorm:"serializer:json"`
	Phase       string   `gorm:"size:32;not null"`
	LastActedID string   `gorm:"size:64"`
	Version     int      `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (SessionRecord) TableName() string { return "sessions" }

type AthleteRecord struct {
	SessionID        string `gorm:"primaryKey;size:64"`
	ID               string `gorm:"primaryKey;size:64"`
	Position         int    `gorm:"not null"`
	Name             string `gorm:"size:200;not null"`
	Country          string `gorm:"size:8"`
	TeamID           string `gorm:"size:64"`
	Gender           string `gorm:"size:16"`
	WeightCategory   string `gorm:"size:32;not null"`
	StartNumber      int    `gorm:"not null"`
	LotNumber        int
	BodyWeight       float64
	WeighedIn        bool
	OpeningSnatch    int
	OpeningCleanJerk int
	Disqualified     bool
	Medal            string `gorm:"size:8"`
}

func (AthleteRecord) TableName() string { return "athletes" }

type AttemptRecord struct {
	SessionID  string `gorm:"primaryKey;size:64"`
	ID         string `gorm:"primaryKey;size:160"`
	Position   int    `gorm:"not null"`
	AthleteID  string `gorm:"size:64;not null;index"`
	Lift       string `gorm:"size:16;not null"`
	Number     int    `gorm:"not null"`
	Weight     int    `gorm:"not null"`
	Result     string `gorm:"size:16;not null"`
	EditCount  int    `gorm:"not null;default:0"`
	DeclaredAt time.Time
	JudgedAt   *time.Time
}

func (AttemptRecord) TableName() string { return "attempts" }

type WeightChangeRecord struct {
	SessionID string `gorm:"primaryKey;size:64"`
	SlotKey   string `gorm:"primaryKey;size:160"`
	Count     int    `gorm:"not null"`
}

func (WeightChangeRecord) TableName() string { return "weight_changes" }

// TransitionRecord and AuditRecord rows are append-only.
type TransitionRecord struct {
	SessionID string `gorm:"primaryKey;size:64"`
	Seq       int    `gorm:"primaryKey"`
	FromPhase string `gorm:"size:32;not null"`
	ToPhase   string `gorm:"size:32;not null"`
	Actor     string `gorm:"size:100"`
	Reason    string
	At        time.Time
}

func (TransitionRecord) TableName() string { return "phase_transitions" }

type AuditRecord struct {
	SessionID string `gorm:"primaryKey;size:64"`
	Seq       int    `gorm:"primaryKey"`
	Action    string `gorm:"size:64;not null"`
	Actor     string `gorm:"size:100;not null"`
	AthleteID string `gorm:"size:64"`
	AttemptID string `gorm:"size:160"`
	Detail    string
	At        time.Time
}

func (AuditRecord) TableName() string { return "audit_log" }

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

// OpenPostgres connects through the pgx-backed postgres driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&SessionRecord{},
		&AthleteRecord{},
		&AttemptRecord{},
		&WeightChangeRecord{},
		&TransitionRecord{},
		&AuditRecord{},
	)
}

type records struct {
	session     SessionRecord
	athletes    []AthleteRecord
	attempts    []AttemptRecord
	changes     []WeightChangeRecord
	transitions []TransitionRecord
	audit       []AuditRecord
}

func (g *GormStore) SaveSession(ctx context.Context, version int, s engine.State) error {
	recs := toRecords(version, s)
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur SessionRecord
		err := tx.Select("version").Where("id = ?", s.SessionID).Take(&cur).Error
		switch {
		case err == nil:
			if version > 0 && cur.Version >= version {
				return nil
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("load version: %w", err)
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"gender", "categories", "phase", "last_acted_id", "version", "updated_at"}),
		}).Create(&recs.session).Error; err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		if len(recs.athletes) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&recs.athletes).Error; err != nil {
				return fmt.Errorf("upsert athletes: %w", err)
			}
		}
		if len(recs.attempts) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&recs.attempts).Error; err != nil {
				return fmt.Errorf("upsert attempts: %w", err)
			}
		}
		if len(recs.changes) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&recs.changes).Error; err != nil {
				return fmt.Errorf("upsert weight changes: %w", err)
			}
		}
		if len(recs.transitions) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&recs.transitions).Error; err != nil {
				return fmt.Errorf("append transitions: %w", err)
			}
		}
		if len(recs.audit) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&recs.audit).Error; err != nil {
				return fmt.Errorf("append audit: %w", err)
			}
		}
		return nil
	})
}

func (g *GormStore) LoadSession(ctx context.Context, id string) (engine.State, int, error) {
	db := g.db.WithContext(ctx)
	var recs records
	if err := db.Where("id = ?", id).Take(&recs.session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engine.State{}, 0, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return engine.State{}, 0, fmt.Errorf("load session: %w", err)
	}
	if err := db.Where("session_id = ?", id).Order("position").Find(&recs.athletes).Error; err != nil {
		return engine.State{}, 0, fmt.Errorf("load athletes: %w", err)
	}
	if err := db.Where("session_id = ?", id).Order("position").Find(&recs.attempts).Error; err != nil {
		return engine.State{}, 0, fmt.Errorf("load attempts: %w", err)
	}
	if err := db.Where("session_id = ?", id).Find(&recs.changes).Error; err != nil {
		return engine.State{}, 0, fmt.Errorf("load weight changes: %w", err)
	}
	if err := db.Where("session_id = ?", id).Order("seq").Find(&recs.transitions).Error; err != nil {
		return engine.State{}, 0, fmt.Errorf("load transitions: %w", err)
	}
	if err := db.Where("session_id = ?", id).Order("seq").Find(&recs.audit).Error; err != nil {
		return engine.State{}, 0, fmt.Errorf("load audit: %w", err)
	}
	return fromRecords(recs), recs.session.Version, nil
}

func toRecords(version int, s engine.State) records {
	r := records{session: SessionRecord{
		ID:          s.SessionID,
		Gender:      string(s.Gender),
		Categories:  s.Categories,
		Phase:       string(s.Phase),
		LastActedID: s.LastActedID,
		Version:     version,
	}}
	for i, a := range s.Athletes {
		r.athletes = append(r.athletes, AthleteRecord{
			SessionID:        s.SessionID,
			ID:               a.ID,
			Position:         i,
			Name:             a.Name,
			Country:          a.Country,
			TeamID:           a.TeamID,
			Gender:           string(a.Gender),
			WeightCategory:   a.WeightCategory,
			StartNumber:      a.StartNumber,
			LotNumber:        a.LotNumber,
			BodyWeight:       a.BodyWeight,
			WeighedIn:        a.WeighedIn,
			OpeningSnatch:    a.OpeningSnatch,
			OpeningCleanJerk: a.OpeningCleanJerk,
			Disqualified:     a.Disqualified,
			Medal:            string(a.Medal),
		})
	}
	for i, at := range s.Ledger.Attempts {
		rec := AttemptRecord{
			SessionID:  s.SessionID,
			ID:         at.ID,
			Position:   i,
			AthleteID:  at.AthleteID,
			Lift:       string(at.Lift),
			Number:     at.Number,
			Weight:     at.Weight,
			Result:     string(at.Result),
			EditCount:  at.EditCount,
			DeclaredAt: at.DeclaredAt,
		}
		if !at.JudgedAt.IsZero() {
			judged := at.JudgedAt
			rec.JudgedAt = &judged
		}
		r.attempts = append(r.attempts, rec)
	}
	for key, n := range s.Ledger.Changes {
		r.changes = append(r.changes, WeightChangeRecord{SessionID: s.SessionID, SlotKey: key, Count: n})
	}
	for _, h := range s.History {
		r.transitions = append(r.transitions, TransitionRecord{
			SessionID: s.SessionID,
			Seq:       h.Seq,
			FromPhase: string(h.From),
			ToPhase:   string(h.To),
			Actor:     h.Actor,
			Reason:    h.Reason,
			At:        h.At,
		})
	}
	for _, e := range s.Audit {
		r.audit = append(r.audit, AuditRecord{
			SessionID: s.SessionID,
			Seq:       e.Seq,
			Action:    e.Action,
			Actor:     e.Actor,
			AthleteID: e.AthleteID,
			AttemptID: e.AttemptID,
			Detail:    e.Detail,
			At:        e.At,
		})
	}
	return r
}

func fromRecords(r records) engine.State {
	s := engine.NewState(r.session.ID, engine.Gender(r.session.Gender), r.session.Categories)
	if r.session.Phase != "" {
		s.Phase = engine.Phase(r.session.Phase)
	}
	s.LastActedID = r.session.LastActedID

	for _, a := range r.athletes {
		s.Athletes = append(s.Athletes, engine.Athlete{
			ID:               a.ID,
			Name:             a.Name,
			Country:          a.Country,
			TeamID:           a.TeamID,
			Gender:           engine.Gender(a.Gender),
			WeightCategory:   a.WeightCategory,
			StartNumber:      a.StartNumber,
			LotNumber:        a.LotNumber,
			BodyWeight:       a.BodyWeight,
			WeighedIn:        a.WeighedIn,
			OpeningSnatch:    a.OpeningSnatch,
			OpeningCleanJerk: a.OpeningCleanJerk,
			Disqualified:     a.Disqualified,
			Medal:            engine.Medal(a.Medal),
		})
	}
	for _, at := range r.attempts {
		attempt := engine.Attempt{
			ID:         at.ID,
			AthleteID:  at.AthleteID,
			Lift:       engine.LiftType(at.Lift),
			Number:     at.Number,
			Weight:     at.Weight,
			Result:     engine.Result(at.Result),
			EditCount:  at.EditCount,
			DeclaredAt: at.DeclaredAt,
		}
		if at.JudgedAt != nil {
			attempt.JudgedAt = *at.JudgedAt
		}
		s.Ledger.Attempts = append(s.Ledger.Attempts, attempt)
	}
	for _, c := range r.changes {
		s.Ledger.Changes[c.SlotKey] = c.Count
	}
	for _, h := range r.transitions {
		s.History = append(s.History, engine.Transition{
			Seq:    h.Seq,
			From:   engine.Phase(h.FromPhase),
			To:     engine.Phase(h.ToPhase),
			Actor:  h.Actor,
			Reason: h.Reason,
			At:     h.At,
		})
	}
	for _, e := range r.audit {
		s.Audit = append(s.Audit, engine.AuditEntry{
			Seq:       e.Seq,
			Action:    e.Action,
			Actor:     e.Actor,
			AthleteID: e.AthleteID,
			AttemptID: e.AttemptID,
			Detail:    e.Detail,
			At:        e.At,
		})
	}
	return s
}

var _ Store = (*GormStore)(nil)
