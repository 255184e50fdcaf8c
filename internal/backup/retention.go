package backup

import (
	"context"
	"errors"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/core/ports"
	"github.com/sparkpanel/sparkd/internal/metrics"
)

// Policy bounds how many backups are kept. Zero disables a limit.
type Policy struct {
	Days     int
	MaxCount int
}

// Retention deletes backups that fall outside the policy.
type Retention struct {
	store  ports.BackupStore
	policy Policy
	logger zerolog.Logger
}

func NewRetention(store ports.BackupStore, policy Policy, logger zerolog.Logger) *Retention {
	return &Retention{store: store, policy: policy, logger: logger}
}

// Apply removes backups older than the age limit, then everything beyond the newest
// MaxCount per server. A failure on one backup is logged and the sweep continues.
func (r *Retention) Apply(ctx context.Context, now time.Time) (int, error) {
	all, err := r.store.ListBackups("")
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, b := range Expired(all, r.policy, now) {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.Remove(b.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn().Err(err).Str("server_id", b.ServerID).Str("path", b.Path).Msg("failed to delete backup file")
			continue
		}
		if err := r.store.DeleteBackup(b.ID); err != nil {
			r.logger.Warn().Err(err).Str("server_id", b.ServerID).Str("backup", b.ID).Msg("failed to delete backup record")
			continue
		}
		removed++
		metrics.BackupsRemovedTotal.Inc()
	}

	if removed > 0 {
		r.logger.Info().Int("removed", removed).Msg("backup retention applied")
	}
	return removed, nil
}

// Expired returns the backups the policy no longer keeps.
func Expired(backups []domain.Backup, p Policy, now time.Time) []domain.Backup {
	byServer := make(map[string][]domain.Backup)
	for _, b := range backups {
		byServer[b.ServerID] = append(byServer[b.ServerID], b)
	}

	var cutoff time.Time
	if p.Days > 0 {
		cutoff = now.AddDate(0, 0, -p.Days)
	}

	var expired []domain.Backup
	for _, list := range byServer {
		sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
		kept := 0
		for _, b := range list {
			switch {
			case !cutoff.IsZero() && b.CreatedAt.Before(cutoff):
				expired = append(expired, b)
			case p.MaxCount > 0 && kept >= p.MaxCount:
				expired = append(expired, b)
			default:
				kept++
			}
		}
	}
	return expired
}
