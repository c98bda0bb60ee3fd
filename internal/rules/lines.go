package rules

import (
	"fmt"
	"strings"
)

// DoubleSpaceRule flags two spaces following a period. It is deliberately
// broad and also fires inside comments and string literals.
type DoubleSpaceRule struct{}

const doubleSpace = ".  "

// Name implements LineRule.
func (DoubleSpaceRule) Name() string { return "double-space" }

// CheckLine implements LineRule.
func (DoubleSpaceRule) CheckLine(line string) []string {
	if strings.Contains(line, doubleSpace) {
		return []string{"over-enthusiastic spaces"}
	}
	return nil
}

// FixLine implements LineRule. Runs of spaces after a period collapse to one.
func (DoubleSpaceRule) FixLine(line string) string {
	for strings.Contains(line, doubleSpace) {
		line = strings.ReplaceAll(line, doubleSpace, ". ")
	}
	return line
}

const includeAngle = "#include <"

// AngleIncludeRule flags bracket-style includes whose first path segment is
// one of the project's own top-level directories.
type AngleIncludeRule struct {
	dirs map[string]bool
}

// NewAngleIncludeRule returns a rule for the given top-level directories.
func NewAngleIncludeRule(dirs []string) *AngleIncludeRule {
	set := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		set[d] = true
	}
	return &AngleIncludeRule{dirs: set}
}

// Name implements LineRule.
func (r *AngleIncludeRule) Name() string { return "angle-include" }

func (r *AngleIncludeRule) matches(line string) bool {
	if !strings.HasPrefix(line, includeAngle) {
		return false
	}
	rest := line[len(includeAngle):]
	slash := strings.IndexByte(rest, '/')
	if slash == -1 {
		return false
	}
	return r.dirs[rest[:slash]]
}

// CheckLine implements LineRule.
func (r *AngleIncludeRule) CheckLine(line string) []string {
	if r.matches(line) {
		return []string{"project includes should not have angle brackets"}
	}
	return nil
}

// FixLine implements LineRule. Only the include delimiters are rewritten.
func (r *AngleIncludeRule) FixLine(line string) string {
	if !r.matches(line) {
		return line
	}
	open := len(includeAngle) - 1
	rest := line[open+1:]
	closing := strings.IndexByte(rest, '>')
	if closing == -1 {
		return line[:open] + `"` + rest
	}
	return line[:open] + `"` + rest[:closing] + `"` + rest[closing+1:]
}

// Remap maps a disallowed qualified name to its required spelling.
type Remap struct {
	From string
	To   string
}

// DefaultRemaps are the protobuf type spellings the project requires.
var DefaultRemaps = []Remap{
	// Well-known types live in the ProtobufWkt namespace.
	{From: "Protobuf::Any", To: "ProtobufWkt::Any"},
	{From: "Protobuf::Empty", To: "ProtobufWkt::Empty"},
	{From: "Protobuf::ListValue", To: "ProtobufWkt::ListValue"},
	{From: "Protobuf::NULL_VALUE", To: "ProtobufWkt::NULL_VALUE"},
	{From: "Protobuf::StringValue", To: "ProtobufWkt::StringValue"},
	{From: "Protobuf::Struct", To: "ProtobufWkt::Struct"},
	{From: "Protobuf::Value", To: "ProtobufWkt::Value"},

	// Maps keyed by strings use the protobuf string type.
	{From: "Protobuf::MapPair<std::string", To: "Protobuf::MapPair<Envoy::ProtobufTypes::String"},

	{From: "ProtobufWkt::Map", To: "Protobuf::Map"},
	{From: "ProtobufWkt::MapPair", To: "Protobuf::MapPair"},
	{From: "ProtobufUtil::MessageDifferencer", To: "Protobuf::util::MessageDifferencer"},
}

// QualifiedNameRule rewrites disallowed qualified names. Substitutions run as
// a sequential pass in mapping order, so a later entry sees the output of an
// earlier one; the pass repeats until the line is stable.
type QualifiedNameRule struct {
	remaps []Remap
}

// NewQualifiedNameRule returns a rule for the given ordered mapping.
func NewQualifiedNameRule(remaps []Remap) *QualifiedNameRule {
	return &QualifiedNameRule{remaps: append([]Remap(nil), remaps...)}
}

// Name implements LineRule.
func (r *QualifiedNameRule) Name() string { return "qualified-name" }

// CheckLine implements LineRule. Every entry is matched against the
// unmodified line.
func (r *QualifiedNameRule) CheckLine(line string) []string {
	var msgs []string
	for _, m := range r.remaps {
		if strings.Contains(line, m.From) {
			msgs = append(msgs, fmt.Sprintf("incorrect protobuf type reference %s; should be %s", m.From, m.To))
		}
	}
	return msgs
}

// FixLine implements LineRule.
func (r *QualifiedNameRule) FixLine(line string) string {
	// Bounded in case a mapping ever produces text an earlier entry rewrites back.
	for i := 0; i <= len(r.remaps); i++ {
		next := line
		for _, m := range r.remaps {
			next = strings.ReplaceAll(next, m.From, m.To)
		}
		if next == line {
			break
		}
		line = next
	}
	return line
}
