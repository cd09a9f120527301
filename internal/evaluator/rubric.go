package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"call-review-go/internal/types"
)

// Property is one field of the rubric schema sent to the model.
type Property struct {
	Name        string
	Type        string // integer, decimal or string
	Description string
}

// Rubric is the function schema the model must fill in. Its property names
// are the wire contract for types.Scorecard.
type Rubric struct {
	Name        string
	Description string
	Properties  []Property
	Strict      bool
}

// DefaultRubric is the nine-dimension sales call audit.
var DefaultRubric = Rubric{
	Name:        "call_audit",
	Description: "You are a function who will do the audit on the calls",
	Strict:      true,
	Properties: []Property{
		{"pitch_followed", "integer", "This measures how well the sales representative understands and articulates the details of the flats being offered."},
		{"confidence", "integer", "This reflects how well the sales agent is able to address and clarify the doubts of the prospect."},
		{"tonality", "integer", "This includes the tone in which the sales representative is speaking and how well they manage the tone throughout the conversation."},
		{"energy", "integer", "This measures the level of enthusiasm and energy the sales representative exhibits during the call."},
		{"enthusiasm", "integer", "This reflects the sales representative's eagerness and interest in discussing the flats."},
		{"customer_understanding", "integer", "This reflects the representative's ability to understand the customer's needs, problems, and concerns."},
		{"communication_skills", "integer", "This includes the clarity, tone, pace, use of persuasive language, and active listening."},
		{"objection_handling", "integer", "This measures the representative's ability to address customer objections effectively."},
		{"closing_skills", "integer", "This measures the representative's ability to guide the conversation towards a sale or next step."},
		{"Overall Score", "decimal", "Your ultimate goal is to evaluate all the scores and give them an overall score."},
		{"conclusion", "string", "Your ultimate goal is to evaluate the salesperson's performance and give them points for improvement."},
	},
}

// Required lists every property; the audit has no optional fields.
func (r Rubric) Required() []string {
	out := make([]string, len(r.Properties))
	for i, p := range r.Properties {
		out[i] = p.Name
	}
	return out
}

// Dimensions lists the integer-scored properties in order.
func (r Rubric) Dimensions() []string {
	var out []string
	for _, p := range r.Properties {
		if p.Type == "integer" {
			out = append(out, p.Name)
		}
	}
	return out
}

func (r Rubric) has(name string) bool {
	for _, p := range r.Properties {
		if p.Name == name {
			return true
		}
	}
	return false
}

type toolDef struct {
	Type     string      `json:"type"`
	Function functionDef `json:"function"`
}

type functionDef struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  parameters `json:"parameters"`
	Strict      bool       `json:"strict"`
}

type parameters struct {
	Type                 string     `json:"type"`
	Properties           properties `json:"properties"`
	AdditionalProperties bool       `json:"additionalProperties"`
	Required             []string   `json:"required"`
}

// properties marshals in rubric order instead of map key order.
type properties []Property

func (ps properties) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, p := range ps {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		}{p.Type, p.Description})
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// ToolJSON renders the rubric as a function-tool definition.
func (r Rubric) ToolJSON() (string, error) {
	tools := []toolDef{{
		Type: "function",
		Function: functionDef{
			Name:        r.Name,
			Description: r.Description,
			Strict:      r.Strict,
			Parameters: parameters{
				Type:                 "object",
				Properties:           properties(r.Properties),
				AdditionalProperties: false,
				Required:             r.Required(),
			},
		},
	}}
	out, err := json.MarshalIndent(tools, "", "    ")
	if err != nil {
		return "", fmt.Errorf("render rubric tool: %w", err)
	}
	return string(out), nil
}

// CheckConformance verifies that the rubric and types.Scorecard describe the
// same fields with compatible types.
func CheckConformance(r Rubric) error {
	want := map[string]string{}
	for _, p := range r.Properties {
		if _, dup := want[p.Name]; dup {
			return fmt.Errorf("rubric property %q declared twice", p.Name)
		}
		want[p.Name] = p.Type
	}

	got := map[string]string{}
	t := reflect.TypeOf(types.Scorecard{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		got[name] = schemaType(f.Type.Kind())
	}

	var problems []string
	for name, typ := range want {
		gt, ok := got[name]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("%q missing from scorecard", name))
		case gt != typ:
			problems = append(problems, fmt.Sprintf("%q is %s in rubric but %s in scorecard", name, typ, gt))
		}
	}
	for name := range got {
		if _, ok := want[name]; !ok {
			problems = append(problems, fmt.Sprintf("%q missing from rubric", name))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("rubric does not match scorecard: %s", strings.Join(problems, "; "))
	}
	return nil
}

func schemaType(k reflect.Kind) string {
	switch k {
	case reflect.Int, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "decimal"
	case reflect.String:
		return "string"
	}
	return k.String()
}
