package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"papertrail/auth"
	"papertrail/metrics"
)

// PurgeDeleted löscht Paper endgültig, die länger als retention im Papierkorb
// liegen. Fehler bei einzelnen Papern werden geloggt, der Lauf geht weiter.
func (s *Service) PurgeDeleted(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := s.now().Add(-retention)
	ids, err := s.store.DeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		s.logger.Debug("Trash purge: nothing to do", zap.Time("cutoff", cutoff))
		return 0, nil
	}

	actor, err := s.resolveActor(ctx, auth.Principal{Role: auth.RoleAdmin, Source: "purge"})
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if err := s.store.HardDeletePaper(ctx, id, actor); err != nil {
			s.logger.Error("Trash purge: failed to delete paper", zap.Int64("paper_id", id), zap.Error(err))
			continue
		}
		purged++
	}
	metrics.Purged(purged)
	s.logger.Info("Trash purge finished",
		zap.Int("candidates", len(ids)),
		zap.Int("purged", purged),
		zap.Time("cutoff", cutoff))
	return purged, ctx.Err()
}
