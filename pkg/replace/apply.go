package replace

import (
	"go.uber.org/zap"
)

// Report describes a completed apply.
type Report struct {
	// Written lists the files replaced on disk, in write order.
	Written []string
	// Unchanged lists planned files whose content did not change.
	Unchanged []string
}

// Apply writes every edit of the plan, strictly in order. Before any write,
// the original content of every file is already held by the plan. When a
// write fails, every file written earlier in this call is restored from that
// content, and the returned *ApplyError says which restores succeeded.
//
// Apply takes no context: once the first write has started the run must end
// either fully applied or rolled back.
func (p *Plan) Apply(store *Store, log *zap.Logger) (*Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	report := &Report{}
	var written []*Edit
	for _, edit := range p.Edits {
		if !edit.Changed() {
			report.Unchanged = append(report.Unchanged, edit.Path)
			continue
		}
		if err := store.WriteAtomic(edit.Path, edit.After, edit.Mode); err != nil {
			log.Error("write failed, rolling back", zap.String("path", edit.Path), zap.Error(err))
			return report, rollback(store, log, edit.Path, err, written)
		}
		log.Debug("wrote file", zap.String("path", edit.Path))
		written = append(written, edit)
		report.Written = append(report.Written, edit.Path)
	}
	return report, nil
}

func rollback(store *Store, log *zap.Logger, failed string, cause error, written []*Edit) *ApplyError {
	aerr := &ApplyError{Path: failed, Err: cause}
	// Restore newest first so the last touched file is fixed first.
	for i := len(written) - 1; i >= 0; i-- {
		edit := written[i]
		if err := store.WriteAtomic(edit.Path, edit.Before, edit.Mode); err != nil {
			log.Error("rollback failed", zap.String("path", edit.Path), zap.Error(err))
			aerr.NotReverted = append(aerr.NotReverted, edit.Path)
			aerr.RevertErrors = append(aerr.RevertErrors, err)
			continue
		}
		log.Info("reverted", zap.String("path", edit.Path))
		aerr.Reverted = append(aerr.Reverted, edit.Path)
	}
	return aerr
}
