package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PGPoolReportSpec defines the desired state of PGPoolReport.
type PGPoolReportSpec struct {
	// ClusterName is the name of the Ceph cluster this report covers.
	ClusterName string `json:"clusterName"`

	// Profile is the autoscaler profile applied cluster-wide
	// ("scale-up" or "scale-down").
	// +kubebuilder:validation:Enum=scale-up;scale-down
	Profile string `json:"profile"`
}

// PGPoolStatusEntry mirrors one row of the `ceph osd pool autoscale-status`
// table for a single pool.
type PGPoolStatusEntry struct {
	PoolID               int64   `json:"poolID"`
	PoolName             string  `json:"poolName"`
	SizeBytes            int64   `json:"sizeBytes"`
	TargetSizeBytes      int64   `json:"targetSizeBytes,omitempty"`
	CapacityRatio        float64 `json:"capacityRatio"`
	TargetRatio          float64 `json:"targetRatio,omitempty"`
	EffectiveTargetRatio float64 `json:"effectiveTargetRatio,omitempty"`
	Bias                 float64 `json:"bias"`
	PGNum                int     `json:"pgNum"`
	PGNumFinal           int64   `json:"pgNumFinal"`
	Mode                 string  `json:"mode"`
	WouldAdjust          bool    `json:"wouldAdjust"`
}

// PGPoolReportStatus defines the observed state of PGPoolReport.
type PGPoolReportStatus struct {
	// LastUpdated is the timestamp of the last control-loop iteration that
	// refreshed this report.
	// +optional
	LastUpdated metav1.Time `json:"lastUpdated,omitempty"`

	// Pools holds the per-pool sizing status as of LastUpdated.
	// +optional
	Pools []PGPoolStatusEntry `json:"pools,omitempty"`

	// HealthChecks mirrors the health-check codes currently raised by the
	// control loop (POOL_TOO_FEW_PGS, POOL_TOO_MANY_PGS, ...).
	// +optional
	HealthChecks []string `json:"healthChecks,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Cluster",type=string,JSONPath=`.spec.clusterName`
// +kubebuilder:printcolumn:name="Profile",type=string,JSONPath=`.spec.profile`
// +kubebuilder:printcolumn:name="Updated",type=date,JSONPath=`.status.lastUpdated`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// PGPoolReport is the Schema for the pgpoolreports API. One instance
// reflects one Ceph cluster's current autoscaler status, published by the
// control loop when running with the k8s report backend.
type PGPoolReport struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   PGPoolReportSpec   `json:"spec,omitempty"`
	Status PGPoolReportStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// PGPoolReportList contains a list of PGPoolReport.
type PGPoolReportList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []PGPoolReport `json:"items"`
}

func init() {
	SchemeBuilder.Register(&PGPoolReport{}, &PGPoolReportList{})
}
