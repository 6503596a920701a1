package apiclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/tidwall/gjson"
)

func decodeTargetPage(body []byte) (*TargetPage, error) {
	root := gjson.ParseBytes(body)
	entries := root.Get("entries")
	if !entries.IsArray() {
		return nil, fmt.Errorf("%w: missing entries", ErrInvalidResponse)
	}

	page := &TargetPage{TotalCount: int(root.Get("total_count").Int())}
	for _, e := range entries.Array() {
		t, err := decodeTarget(e)
		if err != nil {
			return nil, err
		}
		page.Entries = append(page.Entries, t)
	}
	return page, nil
}

func decodeTarget(v gjson.Result) (domain.Target, error) {
	if !v.IsObject() {
		return domain.Target{}, fmt.Errorf("%w: target is not an object", ErrInvalidResponse)
	}
	t := domain.Target{
		ID:             v.Get("id").String(),
		Name:           v.Get("name").String(),
		Department:     v.Get("department").String(),
		Status:         domain.TargetStatus(v.Get("status").String()),
		ResponsibleUID: v.Get("responsible_uid").String(),
		StartDate:      optTime(v.Get("start_date")),
		EndDate:        optTime(v.Get("end_date")),
		CreatedAt:      parseTime(v.Get("created_at")),
		UpdatedAt:      parseTime(v.Get("updated_at")),
	}
	if t.ID == "" {
		return domain.Target{}, fmt.Errorf("%w: target without id", ErrInvalidResponse)
	}

	for _, p := range v.Get("plans").Array() {
		item, ok := decodePlan(p, t.ID)
		if !ok {
			continue
		}
		t.Plans = append(t.Plans, item)
	}
	return t, nil
}

// decodePlan reads one flat plan entry. Entries with a plan type this client
// does not know are skipped.
func decodePlan(v gjson.Result, targetID string) (domain.PlanItem, bool) {
	cfg, ok := domain.ConfigFor(domain.PlanType(v.Get("plan_type").String()))
	if !ok || v.Get("id").String() == "" {
		return domain.PlanItem{}, false
	}

	p := domain.PlanItem{
		ID:          v.Get("id").String(),
		TargetID:    domain.CoalesceStr(v.Get("target_id").String(), targetID),
		PlanType:    cfg.Type,
		PlanName:    v.Get("plan_name").String(),
		Owner:       v.Get("owner").String(),
		Description: v.Get("description").String(),
		Targets:     make(map[string]int, len(cfg.Dimensions)),
		Actuals:     make(map[string]string, len(cfg.Dimensions)),
		UpdatedAt:   parseTime(v.Get("updated_at")),
	}
	for _, rp := range v.Get("related_plans").Array() {
		p.RelatedPlans = append(p.RelatedPlans, domain.RelatedPlan{
			ID:   rp.Get("id").String(),
			Name: rp.Get("name").String(),
		})
	}

	for _, d := range cfg.Dimensions {
		if t := v.Get(d.TargetField); t.Exists() && t.Type != gjson.Null {
			p.Targets[d.TargetField] = int(t.Int())
		}
		p.SetActual(d.ActualField, actualString(v.Get(d.ActualField)))
	}
	return p, true
}

// actualString renders an actual value the way the form holds it. Numbers
// keep their literal text so that 8.5 stays invalid rather than becoming 8.
func actualString(v gjson.Result) string {
	switch v.Type {
	case gjson.Number:
		return v.Raw
	case gjson.String:
		return v.Str
	default:
		return ""
	}
}

func decodeProblem(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	if !gjson.ValidBytes(body) {
		apiErr.Detail = strings.TrimSpace(string(body))
		return apiErr
	}

	root := gjson.ParseBytes(body)
	apiErr.Code = domain.CoalesceStr(root.Get("code").String(), problemCode(root.Get("type").String()))
	apiErr.Detail = domain.CoalesceStr(root.Get("detail").String(), root.Get("title").String())
	for _, fe := range root.Get("errors").Array() {
		apiErr.Fields = append(apiErr.Fields, FieldProblem{
			PlanID:  fe.Get("plan_id").String(),
			Field:   fe.Get("field").String(),
			Message: fe.Get("message").String(),
		})
	}
	return apiErr
}

// problemCode reduces a problem type URI to its last path segment.
func problemCode(typ string) string {
	if typ == "" || typ == "about:blank" {
		return ""
	}
	if i := strings.LastIndex(typ, "/"); i >= 0 {
		return typ[i+1:]
	}
	return typ
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(v gjson.Result) time.Time {
	if v.Type == gjson.Number {
		return time.UnixMilli(v.Int()).UTC()
	}
	s := strings.TrimSpace(v.String())
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func optTime(v gjson.Result) *time.Time {
	t := parseTime(v)
	if t.IsZero() {
		return nil
	}
	return &t
}
