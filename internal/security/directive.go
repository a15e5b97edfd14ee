package security

// Action is the effect of a directive.
type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
)

// Operation is the functional category of a connection attempt.
type Operation int

const (
	Unknown Operation = iota
	Play
	Publish
)

func (o Operation) String() string {
	switch o {
	case Play:
		return "play"
	case Publish:
		return "publish"
	default:
		return "unknown"
	}
}

// ParseOperation maps the wire name of an operation to its category.
// Anything other than "play" or "publish" is Unknown.
func ParseOperation(s string) Operation {
	switch s {
	case "play":
		return Play
	case "publish":
		return Publish
	default:
		return Unknown
	}
}

// applicable reports whether a directive scoped to opName applies to o.
// Unknown applies to nothing, and neither does a directive scoped to
// anything other than "play" or "publish".
func (o Operation) applicable(opName string) bool {
	return o != Unknown && ParseOperation(opName) == o
}

// ConnType enumerates the protocol-level connection subtypes a streaming
// frontend distinguishes. The admission core only cares about the
// play/publish split, so subtypes collapse to an Operation once at the
// boundary.
type ConnType int

const (
	ConnUnknown ConnType = iota
	ConnPlay
	ConnFMLEPublish
	ConnFlashPublish
	ConnHaivisionPublish
)

func (t ConnType) Operation() Operation {
	switch t {
	case ConnPlay:
		return Play
	case ConnFMLEPublish, ConnFlashPublish, ConnHaivisionPublish:
		return Publish
	default:
		return Unknown
	}
}

func (t ConnType) String() string {
	switch t {
	case ConnPlay:
		return "play"
	case ConnFMLEPublish:
		return "fmle-publish"
	case ConnFlashPublish:
		return "flash-publish"
	case ConnHaivisionPublish:
		return "haivision-publish"
	default:
		return "unknown"
	}
}

// ParseConnType maps a connection subtype name to its ConnType. The bare
// "publish" is accepted as an alias for the FMLE variant.
func ParseConnType(s string) ConnType {
	switch s {
	case "play":
		return ConnPlay
	case "publish", "fmle-publish":
		return ConnFMLEPublish
	case "flash-publish":
		return ConnFlashPublish
	case "haivision-publish":
		return ConnHaivisionPublish
	default:
		return ConnUnknown
	}
}

// Directive is one configured allow or deny rule. Operation is the raw
// scope string from the config ("play" or "publish"; any other value means
// the rule never matches an attempt). Target is "all", an IPv4 literal, or
// an address/mask specification.
type Directive struct {
	Action    Action `json:"action"`
	Operation string `json:"operation"`
	Target    string `json:"target"`
}

// RuleSet is an ordered list of directives for one vhost. A nil *RuleSet
// means "no rules configured at all", which is distinct from a RuleSet with
// zero directives. The core only reads it; callers must not mutate it while
// a check is in flight.
type RuleSet struct {
	Directives []Directive
}
