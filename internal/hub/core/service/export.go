package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
)

// ExportRoster uploads a CSV snapshot of the caller's roster and returns a
// presigned download URL.
func (s *Service) ExportRoster(ctx context.Context, caller *model.Principal) (*model.Export, error) {
	if s.storage == nil {
		metrics.RosterExports.WithLabelValues("disabled").Inc()
		return nil, model.ErrExportDisabled
	}

	roster, err := s.RosterFor(ctx, caller)
	if err != nil {
		metrics.RosterExports.WithLabelValues("error").Inc()
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rosterRecords(roster)); err != nil {
		metrics.RosterExports.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to render roster: %w", err)
	}

	key := fmt.Sprintf("rosters/%s/%s.csv", roster.OrganizationID, roster.GeneratedAt.UTC().Format("20060102T150405Z"))
	if err := s.storage.Put(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv"); err != nil {
		metrics.RosterExports.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to upload roster: %w", err)
	}

	url, err := s.storage.GeneratePresignedURL(ctx, key, s.exportExpiry)
	if err != nil {
		metrics.RosterExports.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to generate export URL: %w", err)
	}

	metrics.RosterExports.WithLabelValues("success").Inc()
	return &model.Export{
		Object:    key,
		URL:       url,
		Rows:      len(roster.Drivers),
		ExpiresAt: s.clock.Now().Add(s.exportExpiry),
	}, nil
}
