package report

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"gocompare/domain/comparison"
)

// Statistic keys of the descriptive block, in output order.
var descriptiveKeys = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// field is one key of an ordered object.
type field struct {
	Key   string
	Value any
}

// object is a JSON/YAML mapping that keeps insertion order.
type object []field

func (o object) set(key string, value any) object {
	return append(o, field{Key: key, Value: value})
}

// MarshalJSON writes the fields in order without HTML escaping.
func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalNoEscape(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML converts the object to a mapping node.
func (o object) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range o {
		var val yaml.Node
		if err := val.Encode(f.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key},
			&val)
	}
	return node, nil
}

// number is a reported value: rounded, with NaN and infinities as null.
type number float64

func (n number) defined() bool {
	return !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
}

func (n number) MarshalJSON() ([]byte, error) {
	if !n.defined() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(comparison.Round(float64(n)), 'f', -1, 64)), nil
}

func (n number) MarshalYAML() (any, error) {
	if !n.defined() {
		return nil, nil
	}
	return comparison.Round(float64(n)), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Document converts a report to its ordered metric → record mapping.
func Document(r *comparison.Report) any {
	doc := make(object, 0, len(r.Metrics))
	for _, m := range r.Metrics {
		doc = doc.set(m.Metric, metricRecord(m))
	}
	return doc
}

func metricRecord(m comparison.MetricReport) object {
	switch m.Kind {
	case comparison.KindNoData, comparison.KindColumnMissing:
		return object{}.set("error", m.Error)
	case comparison.KindTooFewGroups:
		return object{}.
			set("error", m.Error).
			set("descriptive", descriptiveRecord(m.Descriptive)).
			set("shapiro_p", normalityRecord(m.Normality))
	case comparison.KindDegenerate:
		rec := object{}.
			set("error", m.Error).
			set("descriptive", descriptiveRecord(m.Descriptive)).
			set("shapiro_p", normalityRecord(m.Normality))
		if m.Normality != nil {
			rec = rec.set("all_normal", m.AllNormal)
		}
		if m.Test != nil {
			rec = rec.set("test", testRecord(*m.Test))
		}
		return rec.set("groups", m.GroupCount)
	}

	var posthoc any
	if m.PostHoc != nil {
		posthoc = postHocRecord(*m.PostHoc)
	}
	var reason any
	if m.PostHocReason != "" {
		reason = m.PostHocReason
	}
	var test any
	if m.Test != nil {
		test = testRecord(*m.Test)
	}

	return object{}.
		set("descriptive", descriptiveRecord(m.Descriptive)).
		set("shapiro_p", normalityRecord(m.Normality)).
		set("all_normal", m.AllNormal).
		set("test", test).
		set("posthoc", posthoc).
		set("posthoc_reason", reason).
		set("groups", m.GroupCount)
}

// descriptiveRecord is keyed statistic first, then group.
func descriptiveRecord(desc []comparison.GroupDescriptive) object {
	rec := make(object, 0, len(descriptiveKeys))
	for _, key := range descriptiveKeys {
		byGroup := make(object, 0, len(desc))
		for _, d := range desc {
			byGroup = byGroup.set(d.Label, number(statistic(d.Stats, key)))
		}
		rec = rec.set(key, byGroup)
	}
	return rec
}

func statistic(s comparison.DescriptiveStats, key string) float64 {
	switch key {
	case "count":
		return float64(s.Count)
	case "mean":
		return s.Mean
	case "std":
		return s.Std
	case "min":
		return s.Min
	case "25%":
		return s.Q1
	case "50%":
		return s.Median
	case "75%":
		return s.Q3
	default:
		return s.Max
	}
}

func normalityRecord(verdicts []comparison.GroupNormality) object {
	rec := make(object, 0, len(verdicts))
	for _, v := range verdicts {
		var p any
		if v.Verdict.Determinate {
			p = number(v.Verdict.PValue)
		}
		rec = rec.set(v.Label, p)
	}
	return rec
}

func testRecord(t comparison.TestResult) object {
	return object{}.
		set("name", t.Name).
		set("stat", number(t.Statistic)).
		set("p", number(t.PValue))
}

func postHocRecord(p comparison.PostHocResult) object {
	pairs := make([]object, 0, len(p.Pairs))
	for _, c := range p.Pairs {
		row := object{}.
			set("pair", c.Pair()).
			set("p", number(c.PValue)).
			set("reject", c.Reject)
		if c.MeanDiff != nil {
			row = row.set("diff", number(*c.MeanDiff))
		}
		pairs = append(pairs, row)
	}
	return object{}.
		set("name", p.Name).
		set("pairs", pairs)
}
