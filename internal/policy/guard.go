package policy

// AmberRefusal is the canned reply returned whenever the guard blocks a
// message. The same text is used regardless of which pattern fired; only the
// scorer is rule-specific.
const AmberRefusal = "• Amber-mode: I can help with bullet summaries, outlines, definitions, methods, and marking-criteria checklists.\n" +
	"• I can’t ghost-write or ‘humanise’ AI text."

// Guard evaluates a single message against the hard block-list.
type Guard struct {
	rules *RuleSet
}

func NewGuard(rules *RuleSet) *Guard {
	if rules == nil {
		rules = Default()
	}
	return &Guard{rules: rules}
}

// Decision is the guard's verdict for one message.
type Decision struct {
	Allowed bool
	Reason  string // set only when blocked
}

// Evaluate tests message against each block rule in order and stops at the
// first match. Empty messages are allowed; input validation is the caller's
// job. Pure, no side effects: the caller logs the refusal and must not
// forward a blocked message to the model.
func (g *Guard) Evaluate(message string) Decision {
	for _, re := range g.rules.Block {
		if re.MatchString(message) {
			return Decision{Allowed: false, Reason: AmberRefusal}
		}
	}
	return Decision{Allowed: true}
}
