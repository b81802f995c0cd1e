package checks

// builtinChecks is the bundled check table for the GCP scanner in its
// currently pinned version. IDs follow the scanner's own naming; when
// the scanner is upgraded this table is reconciled against its check
// inventory.
var builtinChecks = map[string]Entry{
	// IAM
	"iam_sa_no_administrative_privileges":   {Framework: "cis", Severity: "high", Title: "Service accounts have no admin privileges"},
	"iam_no_service_roles_at_project_level": {Framework: "cis", Severity: "medium", Title: "No service account user roles at project level"},
	"iam_audit_logs_enabled":                {Framework: "soc2", Severity: "medium", Title: "Cloud Audit Logging configured across services"},
	"iam_sa_user_managed_key_rotation":      {Framework: "pci", Severity: "medium", Title: "User-managed service account keys rotated"},
	"iam_role_kms_separation":               {Framework: "nist", Severity: "high", Title: "KMS admin and encrypter/decrypter roles separated"},

	// Storage
	"cloudstorage_bucket_public_access":  {Framework: "cis", Severity: "critical", Title: "Buckets are not anonymously or publicly accessible"},
	"cloudstorage_uniform_bucket_access": {Framework: "cis", Severity: "medium", Title: "Uniform bucket-level access enabled"},
	"cloudstorage_bucket_versioning":     {Framework: "iso27001", Severity: "low", Title: "Bucket object versioning enabled"},
	"bigquery_dataset_public_access":     {Framework: "gdpr", Severity: "critical", Title: "BigQuery datasets are not publicly accessible"},
	"bigquery_table_cmk_encryption":      {Framework: "hipaa", Severity: "medium", Title: "BigQuery tables encrypted with CMK"},

	// Compute & network
	"compute_firewall_rdp_access_from_the_internet_allowed": {Framework: "cis", Severity: "high", Title: "RDP not open to the internet"},
	"compute_firewall_ssh_access_from_the_internet_allowed": {Framework: "cis", Severity: "high", Title: "SSH not open to the internet"},
	"compute_instance_public_ip":                            {Framework: "nist", Severity: "medium", Title: "Instances do not have public IPs"},
	"compute_default_service_account_in_use":                {Framework: "cis", Severity: "medium", Title: "Default service account not attached"},
	"compute_serial_ports_disabled":                         {Framework: "cis", Severity: "medium", Title: "Serial port access disabled"},
	"networking_dnssec_enabled":                             {Framework: "nist", Severity: "medium", Title: "DNSSEC enabled for Cloud DNS"},
	"networking_flow_logs_enabled":                          {Framework: "soc2", Severity: "low", Title: "VPC flow logs enabled"},

	// Databases
	"cloudsql_instance_public_ip":        {Framework: "cis", Severity: "high", Title: "Cloud SQL instances have no public IP"},
	"cloudsql_instance_ssl_required":     {Framework: "pci", Severity: "high", Title: "Cloud SQL requires SSL connections"},
	"cloudsql_instance_automated_backup": {Framework: "iso27001", Severity: "medium", Title: "Cloud SQL automated backups enabled"},

	// KMS & secrets
	"kms_key_rotation_enabled":      {Framework: "pci", Severity: "high", Title: "KMS keys rotated within 90 days"},
	"kms_key_not_publicly_access":   {Framework: "hipaa", Severity: "critical", Title: "KMS keys are not publicly accessible"},
	"secretmanager_secret_rotation": {Framework: "soc2", Severity: "medium", Title: "Secret Manager secrets have rotation configured"},

	// GKE
	"cis_gke_v1_6_0_4_2_4":             {Framework: "cis", Severity: "high", Title: "Kubelet read-only port disabled"},
	"gke_cluster_private_nodes":        {Framework: "cis", Severity: "high", Title: "GKE clusters use private nodes"},
	"gke_workload_identity_enabled":    {Framework: "cis", Severity: "medium", Title: "Workload Identity enabled"},
	"gke_network_policy_enabled":       {Framework: "nist", Severity: "medium", Title: "GKE network policy enabled"},
	"gke_cluster_logging_monitoring":   {Framework: "soc2", Severity: "low", Title: "GKE logging and monitoring enabled"},
	"gke_binary_authorization_enabled": {Framework: "iso27001", Severity: "medium", Title: "Binary Authorization enabled"},

	// Logging
	"logging_project_sinks_configured": {Framework: "soc2", Severity: "medium", Title: "Log sinks export all entries"},
	"logging_bucket_retention_policy":  {Framework: "gdpr", Severity: "low", Title: "Log bucket retention policy locked"},
}

// builtinAutoFixable lists check IDs with a known-safe automated fix.
// Kept deliberately small: a fix lands here only after the remediation
// has been exercised against production-shaped projects.
var builtinAutoFixable = []string{
	"cis_gke_v1_6_0_4_2_4", // GKE insecure kubelet port
}
