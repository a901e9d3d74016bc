// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package coordinator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/tomtom215/archivus/internal/config"
	"github.com/tomtom215/archivus/internal/logging"
	"github.com/tomtom215/archivus/internal/metrics"
	"github.com/tomtom215/archivus/internal/sink"
)

// Retention prunes old artifacts from the sink. An artifact is pruned
// when it falls outside the newest max_count artifacts or is older than
// max_age; either rule alone is sufficient. Disabled limits (zero) never
// match. A target carrying its own policy replaces the global one
// entirely, so an override with no active rules turns retention off for
// that target.
type Retention struct {
	sink      sink.Sink
	policy    config.RetentionConfig
	overrides map[string]config.RetentionConfig
}

// NewRetention creates a retention manager over the given sink. Targets
// with a retention override are resolved against it instead of the
// global policy.
func NewRetention(snk sink.Sink, policy config.RetentionConfig, targets []TargetDescriptor) *Retention {
	overrides := make(map[string]config.RetentionConfig)
	for _, t := range targets {
		if t.Retention != nil {
			overrides[t.Name] = *t.Retention
		}
	}
	return &Retention{sink: snk, policy: policy, overrides: overrides}
}

// policyFor resolves the retention policy for one target.
func (r *Retention) policyFor(target string) config.RetentionConfig {
	if pol, ok := r.overrides[target]; ok {
		return pol
	}
	return r.policy
}

// PrunePreview shows what retention would keep and delete for one target.
type PrunePreview struct {
	Target           string          `json:"target"`
	WouldKeep        []*ArtifactItem `json:"would_keep"`
	WouldDelete      []*ArtifactItem `json:"would_delete"`
	KeptCount        int             `json:"kept_count"`
	DeletedCount     int             `json:"deleted_count"`
	TotalKeptSize    int64           `json:"total_kept_size"`
	TotalDeletedSize int64           `json:"total_deleted_size"`
}

// ArtifactItem describes one artifact in a retention preview.
type ArtifactItem struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Reason  string    `json:"reason,omitempty"`
}

// SweepResult summarizes one target's retention sweep.
type SweepResult struct {
	Target         string `json:"target"`
	Deleted        int    `json:"deleted"`
	Failed         int    `json:"failed"`
	ReclaimedBytes int64  `json:"reclaimed_bytes"`
}

// pruneCandidate pairs an artifact with the rule that condemned it.
type pruneCandidate struct {
	artifact sink.Artifact
	reason   string
}

// artifactStampPattern matches the start-time stamp the executor embeds
// in artifact names, always followed by the first extension dot.
var artifactStampPattern = regexp.MustCompile(`-(\d{8}-\d{6})\.`)

// artifactTime returns the snapshot start time embedded in the artifact
// name. Names without a parseable stamp fall back to the sink
// modification time, so foreign files still rank somewhere sane.
func artifactTime(a sink.Artifact) time.Time {
	matches := artifactStampPattern.FindAllStringSubmatch(a.Name, -1)
	if len(matches) == 0 {
		return a.ModTime
	}
	// Manually renamed copies can carry more than one stamp-shaped run;
	// the last one decides.
	stamp, err := time.Parse(artifactTimestampFormat, matches[len(matches)-1][1])
	if err != nil {
		return a.ModTime
	}
	return stamp
}

// sortArtifactsNewestFirst orders artifacts by their embedded snapshot
// timestamp, newest first. Ranking by the stamp instead of the sink
// modification time keeps restored or re-uploaded artifacts in their
// original position.
func sortArtifactsNewestFirst(artifacts []sink.Artifact) {
	stamps := make(map[string]time.Time, len(artifacts))
	for _, a := range artifacts {
		stamps[a.Name] = artifactTime(a)
	}
	sort.Slice(artifacts, func(i, j int) bool {
		ti, tj := stamps[artifacts[i].Name], stamps[artifacts[j].Name]
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return artifacts[i].Name > artifacts[j].Name
	})
}

// exceedsMaxAge returns true if the artifact is older than the policy allows.
func exceedsMaxAge(a sink.Artifact, maxAge time.Duration, now time.Time) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(a.ModTime) > maxAge
}

// exceedsMaxCount returns true if the artifact's position in the
// newest-first ordering is past the count limit.
func exceedsMaxCount(position, maxCount int) bool {
	return maxCount > 0 && position >= maxCount
}

// plan partitions a target's artifacts into keepers and prune candidates
// under the given policy. Both slices come back in newest-first order.
func (r *Retention) plan(ctx context.Context, target string, pol config.RetentionConfig, now time.Time) ([]sink.Artifact, []pruneCandidate, error) {
	artifacts, err := r.sink.List(ctx, target)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list artifacts for target %q: %w", target, err)
	}
	sortArtifactsNewestFirst(artifacts)

	var keep []sink.Artifact
	var prune []pruneCandidate
	for i, a := range artifacts {
		switch {
		case exceedsMaxCount(i, pol.MaxCount):
			prune = append(prune, pruneCandidate{
				artifact: a,
				reason:   fmt.Sprintf("exceeds max count of %d", pol.MaxCount),
			})
		case exceedsMaxAge(a, pol.MaxAge, now):
			prune = append(prune, pruneCandidate{
				artifact: a,
				reason:   fmt.Sprintf("older than %s", pol.MaxAge),
			})
		default:
			keep = append(keep, a)
		}
	}
	return keep, prune, nil
}

// Preview reports what a sweep of target would delete without deleting
// anything.
func (r *Retention) Preview(ctx context.Context, target string) (*PrunePreview, error) {
	preview := &PrunePreview{
		Target:      target,
		WouldKeep:   make([]*ArtifactItem, 0),
		WouldDelete: make([]*ArtifactItem, 0),
	}

	keep, prune, err := r.plan(ctx, target, r.policyFor(target), time.Now().UTC())
	if err != nil {
		return nil, err
	}

	for _, a := range keep {
		preview.WouldKeep = append(preview.WouldKeep, &ArtifactItem{
			Name:    a.Name,
			Size:    a.Size,
			ModTime: a.ModTime,
		})
		preview.TotalKeptSize += a.Size
	}
	for _, c := range prune {
		preview.WouldDelete = append(preview.WouldDelete, &ArtifactItem{
			Name:    c.artifact.Name,
			Size:    c.artifact.Size,
			ModTime: c.artifact.ModTime,
			Reason:  c.reason,
		})
		preview.TotalDeletedSize += c.artifact.Size
	}
	preview.KeptCount = len(preview.WouldKeep)
	preview.DeletedCount = len(preview.WouldDelete)
	return preview, nil
}

// Apply sweeps one target. Individual delete failures are logged and
// counted but never abort the sweep; a failed delete will be retried on
// the next cycle because the artifact remains listed.
func (r *Retention) Apply(ctx context.Context, target string) (*SweepResult, error) {
	result := &SweepResult{Target: target}
	pol := r.policyFor(target)
	if !pol.Enabled() {
		return result, nil
	}

	keep, prune, err := r.plan(ctx, target, pol, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	// Delete oldest first so an interrupted sweep leaves the newest
	// artifacts intact.
	for i := len(prune) - 1; i >= 0; i-- {
		c := prune[i]
		err := r.sink.Remove(ctx, target, c.artifact.Name)
		metrics.RecordRetentionDelete(target, c.artifact.Size, err)
		if err != nil {
			result.Failed++
			logging.Warn().
				Err(err).
				Str("target", target).
				Str("artifact", c.artifact.Name).
				Msg("Failed to delete expired artifact")
			continue
		}
		result.Deleted++
		result.ReclaimedBytes += c.artifact.Size
		logging.Debug().
			Str("target", target).
			Str("artifact", c.artifact.Name).
			Str("reason", c.reason).
			Msg("Deleted expired artifact")
	}

	metrics.SetArtifactCount(target, len(keep)+result.Failed)
	if result.Deleted > 0 {
		logging.Info().
			Str("target", target).
			Int("deleted", result.Deleted).
			Float64("reclaimed_mb", float64(result.ReclaimedBytes)/(1024*1024)).
			Msg("Retention sweep completed")
	}
	return result, nil
}

// Sweep applies retention to every target. Listing failures are logged
// and skipped; retention problems never fail the cycle that triggered
// them.
func (r *Retention) Sweep(ctx context.Context, targets []TargetDescriptor) []SweepResult {
	results := make([]SweepResult, 0, len(targets))
	for _, t := range targets {
		result, err := r.Apply(ctx, t.Name)
		if err != nil {
			logging.Warn().Err(err).Str("target", t.Name).Msg("Retention sweep failed for target")
			continue
		}
		results = append(results, *result)
	}
	return results
}
