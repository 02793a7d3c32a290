// Package k8sreport implements the ProgressBus and HealthBus collaborators
// (pkg/placement) by publishing a PGPoolReport CRD's status subresource
// using a get-or-create-then-Status().Update pattern.
package k8sreport

import (
	"context"
	"fmt"
	"sync"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	pgav1alpha1 "github.com/cephstor/pgautoscaler/api/v1alpha1"
	"github.com/cephstor/pgautoscaler/pkg/placement"
)

const reportNamespace = "pgautoscaler-system"

// Reporter creates/updates the single PGPoolReport CRD instance for a
// cluster, and serves as both the ProgressBus and HealthBus collaborator.
type Reporter struct {
	client      client.Client
	clusterName string
	profile     placement.Profile

	mu       sync.Mutex
	progress map[string]progressEntry
	health   []string
}

type progressEntry struct {
	poolID   int64
	progress float64
	message  string
}

// NewReporter creates a Reporter. profile seeds the report's spec.profile
// field; update it via SetProfile if the autoscaler profile changes live.
func NewReporter(c client.Client, clusterName string, profile placement.Profile) *Reporter {
	return &Reporter{
		client:      c,
		clusterName: clusterName,
		profile:     profile,
		progress:    make(map[string]progressEntry),
	}
}

func (r *Reporter) SetProfile(profile placement.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profile = profile
}

func (r *Reporter) reportName() string {
	if r.clusterName == "" {
		return "cluster-pg-autoscaler"
	}
	return fmt.Sprintf("%s-pg-autoscaler", r.clusterName)
}

func (r *Reporter) getOrCreate(ctx context.Context) (*pgav1alpha1.PGPoolReport, error) {
	report := &pgav1alpha1.PGPoolReport{}
	err := r.client.Get(ctx, types.NamespacedName{Name: r.reportName(), Namespace: reportNamespace}, report)
	if apierrors.IsNotFound(err) {
		report = &pgav1alpha1.PGPoolReport{
			ObjectMeta: metav1.ObjectMeta{
				Name:      r.reportName(),
				Namespace: reportNamespace,
			},
			Spec: pgav1alpha1.PGPoolReportSpec{
				ClusterName: r.clusterName,
				Profile:     string(r.profile),
			},
		}
		if err := r.client.Create(ctx, report); err != nil {
			return nil, fmt.Errorf("creating PGPoolReport: %w", err)
		}
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching PGPoolReport: %w", err)
	}
	return report, nil
}

// Update implements placement.ProgressBus. It keeps the latest progress
// per event in memory only; Flush does not write progress to the CRD
// status, which has no progress field.
func (r *Reporter) Update(ctx context.Context, evID, msg string, progress float64, poolID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[evID] = progressEntry{poolID: poolID, progress: progress, message: msg}
}

func (r *Reporter) Complete(ctx context.Context, evID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.progress, evID)
}

// SetHealthChecks implements placement.HealthBus, replacing the full batch
// of active health-check codes (spec §6).
func (r *Reporter) SetHealthChecks(ctx context.Context, checks map[string]placement.HealthCheck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]string, 0, len(checks))
	for code := range checks {
		codes = append(codes, code)
	}
	r.health = codes
}

// Flush publishes the given pool status entries and the latest health-check
// codes to the PGPoolReport CRD's status subresource; buffered progress is
// not included. Call once per control loop iteration, after the mutation
// and health-check steps.
func (r *Reporter) Flush(ctx context.Context, entries []pgav1alpha1.PGPoolStatusEntry) error {
	report, err := r.getOrCreate(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	healthChecks := append([]string(nil), r.health...)
	r.mu.Unlock()

	report.Spec.Profile = string(r.profile)
	report.Status.LastUpdated = metav1.Time{Time: time.Now()}
	report.Status.Pools = entries
	report.Status.HealthChecks = healthChecks

	return r.client.Status().Update(ctx, report)
}
