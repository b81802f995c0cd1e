package ingest

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"time"
	"unicode"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/jsonutil"
)

// OCSF numeric mappings are scanner-version-specific: they track the
// scanner's own severity_id and state_id conventions, which have
// shifted between releases. They are package variables so a deployment
// pinned to a different scanner version can adjust them at startup
// before any parsing runs.
var (
	// OCSFSeverity maps severity_id to canonical severity. IDs outside
	// the map fall back to informational.
	OCSFSeverity = map[int]finding.Severity{
		1: finding.SeverityInformational,
		2: finding.SeverityLow,
		3: finding.SeverityMedium,
		4: finding.SeverityHigh,
		5: finding.SeverityCritical,
		6: finding.SeverityCritical,
	}

	// OCSFState maps state_id to canonical status. The scanner emits 2
	// for resolved checks and 0/1 for unknown/new, which it uses to
	// mean a still-open failure. IDs outside the map are UNKNOWN.
	OCSFState = map[int]finding.Status{
		0: finding.StatusFail,
		1: finding.StatusFail,
		2: finding.StatusPass,
	}
)

// ocsfDoc is the subset of the scanner's OCSF output this repo reads.
type ocsfDoc struct {
	SeverityID   int    `json:"severity_id"`
	StateID      int    `json:"state_id"`
	CheckID      string `json:"check_id"`
	Title        string `json:"title"`
	Service      string `json:"service"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Description  string `json:"description"`

	Resource struct {
		UID string `json:"uid"`
	} `json:"resource"`

	FindingInfo struct {
		Title string `json:"title"`
	} `json:"finding_info"`

	Remediation struct {
		Desc string `json:"desc"`
	} `json:"remediation"`

	Compliance struct {
		Framework string `json:"framework"`
	} `json:"compliance"`

	Cloud struct {
		Project struct {
			UID string `json:"uid"`
		} `json:"project"`
		Account struct {
			UID string `json:"uid"`
		} `json:"account"`
	} `json:"cloud"`

	Time struct {
		ObservedTime any `json:"observed_time"`
	} `json:"time"`
}

// ParseOCSFDir parses every *.ocsf.json file under dir and
// concatenates their findings. A missing directory is a normal
// condition (no scan has run yet) and yields nothing.
func (p *Parser) ParseOCSFDir(dir string) []finding.Finding {
	paths, err := filepath.Glob(filepath.Join(dir, "*.ocsf.json"))
	if err != nil {
		p.logger.Warn("ingest: bad OCSF glob",
			slog.String("dir", dir),
			slog.String("error", err.Error()))
		return nil
	}
	if len(paths) == 0 {
		p.logger.Debug("ingest: no OCSF reports", slog.String("dir", dir))
		return nil
	}

	var findings []finding.Finding
	for _, path := range paths {
		findings = append(findings, p.ParseOCSFFile(path)...)
	}
	return findings
}

// ParseOCSFFile parses one OCSF report, which may be a JSON array of
// finding documents or a single document. OCSF records carry enough
// structure to map straight to canonical findings without the alias
// resolution pass.
func (p *Parser) ParseOCSFFile(path string) []finding.Finding {
	data, ok := p.readFile(path)
	if !ok {
		return nil
	}

	trimmed := bytes.TrimLeftFunc(data, unicode.IsSpace)
	if len(trimmed) == 0 {
		return nil
	}

	var values []jsontext.Value
	if trimmed[0] == '[' {
		if err := jsonutil.Unmarshal(data, &values); err != nil {
			p.logger.Warn("ingest: undecodable OCSF source",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}
	} else {
		values = []jsontext.Value{jsontext.Value(data)}
	}

	findings := make([]finding.Finding, 0, len(values))
	for i, v := range values {
		var doc ocsfDoc
		if err := jsonutil.Unmarshal(v, &doc); err != nil {
			p.logger.Warn("ingest: skipping malformed OCSF record",
				slog.String("path", path),
				slog.Int("index", i),
				slog.String("error", err.Error()))
			continue
		}
		findings = append(findings, doc.toFinding())
	}
	return findings
}

func (d ocsfDoc) toFinding() finding.Finding {
	severity, ok := OCSFSeverity[d.SeverityID]
	if !ok {
		severity = finding.SeverityInformational
	}
	status, ok := OCSFState[d.StateID]
	if !ok {
		status = finding.StatusUnknown
	}

	project := d.Cloud.Project.UID
	if project == "" {
		project = d.Cloud.Account.UID
	}
	if project == "" {
		project = "unknown"
	}

	checkID := d.CheckID
	if checkID == "" {
		checkID = d.Title
	}
	service := d.Service
	if service == "" {
		service = d.ResourceType
	}
	resource := d.Resource.UID
	if resource == "" {
		resource = d.ResourceID
	}
	description := d.Description
	if description == "" {
		description = d.FindingInfo.Title
	}

	return finding.Finding{
		ProjectID:      project,
		ResourceID:     resource,
		CheckID:        checkID,
		Service:        service,
		Status:         status,
		Severity:       severity,
		Framework:      finding.ParseFramework(d.Compliance.Framework),
		Description:    description,
		Recommendation: d.Remediation.Desc,
		Timestamp:      observedTime(d.Time.ObservedTime),
	}
}

// observedTime coerces the OCSF observed_time field, which different
// scanner versions emit as either an RFC 3339 string or epoch
// milliseconds. Unusable values become the zero time.
func observedTime(v any) time.Time {
	switch t := v.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts
		}
	case float64:
		return time.UnixMilli(int64(t)).UTC()
	}
	return time.Time{}
}
