package finding

// Raw is a permissive bag of fields decoded from external scan output.
// Scanner versions disagree on field casing and naming, so every
// canonical field has an explicit, ordered list of acceptable aliases
// declared as separate struct fields. Unknown input fields are ignored;
// missing ones stay empty. Resolution order is fixed by the Resolve*
// methods, first non-empty wins.
type Raw struct {
	CheckID    string `json:"check_id,omitempty" yaml:"check_id,omitempty"`
	ControlID  string `json:"control_id,omitempty" yaml:"control_id,omitempty"`
	CheckIDAlt string `json:"CheckID,omitempty" yaml:"CheckID,omitempty"`

	Service    string `json:"service,omitempty" yaml:"service,omitempty"`
	ServiceAlt string `json:"Service,omitempty" yaml:"Service,omitempty"`

	Status    string `json:"status,omitempty" yaml:"status,omitempty"`
	StatusAlt string `json:"Status,omitempty" yaml:"Status,omitempty"`
	Result    string `json:"result,omitempty" yaml:"result,omitempty"`

	Severity    string `json:"severity,omitempty" yaml:"severity,omitempty"`
	SeverityAlt string `json:"Severity,omitempty" yaml:"Severity,omitempty"`

	ResourceID    string `json:"resource_id,omitempty" yaml:"resource_id,omitempty"`
	ResourceIDAlt string `json:"ResourceId,omitempty" yaml:"ResourceId,omitempty"`
	Resource      string `json:"Resource,omitempty" yaml:"Resource,omitempty"`
	ResourceName  string `json:"resource_name,omitempty" yaml:"resource_name,omitempty"`

	ProjectID    string `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	ProjectIDAlt string `json:"ProjectID,omitempty" yaml:"ProjectID,omitempty"`
	Account      string `json:"account,omitempty" yaml:"account,omitempty"`

	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	DescriptionAlt string `json:"Description,omitempty" yaml:"Description,omitempty"`

	Remediation    string `json:"remediation,omitempty" yaml:"remediation,omitempty"`
	Recommendation string `json:"Recommendation,omitempty" yaml:"Recommendation,omitempty"`

	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	CategoryAlt string `json:"Category,omitempty" yaml:"Category,omitempty"`

	Evidence    string `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	EvidenceAlt string `json:"Evidence,omitempty" yaml:"Evidence,omitempty"`

	// Additional fields some scanner versions emit. Retained so a future
	// alias promotion needs no decode change.
	Region         string `json:"region,omitempty" yaml:"region,omitempty"`
	Namespace      string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	ResourceStatus string `json:"resource_status,omitempty" yaml:"resource_status,omitempty"`
	Compliance     string `json:"compliance,omitempty" yaml:"compliance,omitempty"`
	Notes          string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Timestamp      string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Set assigns value to the field whose wire name is name, using the
// same alias names the JSON decoder accepts. CSV sources bind header
// columns through this. It reports whether the name was recognized.
func (r *Raw) Set(name, value string) bool {
	switch name {
	case "check_id":
		r.CheckID = value
	case "control_id":
		r.ControlID = value
	case "CheckID":
		r.CheckIDAlt = value
	case "service":
		r.Service = value
	case "Service":
		r.ServiceAlt = value
	case "status":
		r.Status = value
	case "Status":
		r.StatusAlt = value
	case "result":
		r.Result = value
	case "severity":
		r.Severity = value
	case "Severity":
		r.SeverityAlt = value
	case "resource_id":
		r.ResourceID = value
	case "ResourceId":
		r.ResourceIDAlt = value
	case "Resource":
		r.Resource = value
	case "resource_name":
		r.ResourceName = value
	case "project_id":
		r.ProjectID = value
	case "ProjectID":
		r.ProjectIDAlt = value
	case "account":
		r.Account = value
	case "description":
		r.Description = value
	case "Description":
		r.DescriptionAlt = value
	case "remediation":
		r.Remediation = value
	case "Recommendation":
		r.Recommendation = value
	case "category":
		r.Category = value
	case "Category":
		r.CategoryAlt = value
	case "evidence":
		r.Evidence = value
	case "Evidence":
		r.EvidenceAlt = value
	case "region":
		r.Region = value
	case "namespace":
		r.Namespace = value
	case "resource_status":
		r.ResourceStatus = value
	case "compliance":
		r.Compliance = value
	case "notes":
		r.Notes = value
	case "timestamp":
		r.Timestamp = value
	default:
		return false
	}
	return true
}

// firstNonEmpty returns the first non-empty value, or "".
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// ResolveCheckID resolves check_id, then control_id, then CheckID.
func (r Raw) ResolveCheckID() string {
	return firstNonEmpty(r.CheckID, r.ControlID, r.CheckIDAlt)
}

// ResolveService resolves service, then Service.
func (r Raw) ResolveService() string {
	return firstNonEmpty(r.Service, r.ServiceAlt)
}

// ResolveStatus resolves status, then Status, then result.
func (r Raw) ResolveStatus() string {
	return firstNonEmpty(r.Status, r.StatusAlt, r.Result)
}

// ResolveSeverity resolves severity, then Severity.
func (r Raw) ResolveSeverity() string {
	return firstNonEmpty(r.Severity, r.SeverityAlt)
}

// ResolveResourceID resolves resource_id, then ResourceId, then
// Resource, then resource_name.
func (r Raw) ResolveResourceID() string {
	return firstNonEmpty(r.ResourceID, r.ResourceIDAlt, r.Resource, r.ResourceName)
}

// ResolveProjectID resolves project_id, then ProjectId, then account.
func (r Raw) ResolveProjectID() string {
	return firstNonEmpty(r.ProjectID, r.ProjectIDAlt, r.Account)
}

// ResolveDescription resolves description, then Description.
func (r Raw) ResolveDescription() string {
	return firstNonEmpty(r.Description, r.DescriptionAlt)
}

// ResolveRemediation resolves remediation, then Recommendation.
func (r Raw) ResolveRemediation() string {
	return firstNonEmpty(r.Remediation, r.Recommendation)
}

// ResolveCategory resolves category, then Category.
func (r Raw) ResolveCategory() string {
	return firstNonEmpty(r.Category, r.CategoryAlt)
}

// ResolveEvidence resolves evidence, then Evidence.
func (r Raw) ResolveEvidence() string {
	return firstNonEmpty(r.Evidence, r.EvidenceAlt)
}
