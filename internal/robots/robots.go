package robots

import (
	"net/url"
	"regexp"
	"strings"
)

// WildcardAgent is the robots.txt token matching every user agent.
const WildcardAgent = "*"

// rule is one compiled Allow or Disallow line. The literal text is kept
// for specificity comparison: when both an allow and a disallow rule
// match a URL, the longer literal decides.
type rule struct {
	literal string
	re      *regexp.Regexp
}

// Rules answers allow/deny questions for one user agent against one
// robots.txt document. The zero value and a failed parse both behave as
// allow-all, so a missing or broken robots.txt never blocks a crawl.
type Rules struct {
	userAgent string
	allows    []rule
	disallows []rule
}

// New parses robotsTxt and isolates the ruleset applying to userAgent,
// the crawler's short UA family name (e.g. "Googlebot").
func New(robotsTxt, userAgent string) *Rules {
	r := &Rules{}
	r.SetRobotsTxt(robotsTxt, userAgent)
	return r
}

// SetRobotsTxt replaces the compiled ruleset with the rules parsed
// from text, isolated for userAgent. Passing an empty document clears
// all rules.
func (r *Rules) SetRobotsTxt(text, userAgent string) {
	r.userAgent = userAgent
	r.allows = nil
	r.disallows = nil
	if strings.TrimSpace(text) == "" {
		return
	}

	allows, disallows := selectRuleset(text, r.userAgent)
	r.allows = compileRules(allows)
	r.disallows = compileRules(disallows)
}

// agentBlock is one robots.txt record: the user-agent tokens naming it
// and the allow/disallow values that follow them.
type agentBlock struct {
	agents    []string
	allows    []string
	disallows []string
}

// selectRuleset parses text into user-agent blocks and returns the
// allow/disallow values of the most specific block matching userAgent.
// Matching is a case-insensitive substring comparison between the block
// token and the UA family name, preferring the longest matching token.
// The wildcard block is the fallback; no applicable block means no rules.
func selectRuleset(text, userAgent string) (allows, disallows []string) {
	blocks := parseBlocks(text)
	ua := strings.ToLower(strings.TrimSpace(userAgent))

	var best *agentBlock
	bestLen := -1
	var wildcard *agentBlock

	for i := range blocks {
		b := &blocks[i]
		for _, agent := range b.agents {
			token := strings.ToLower(agent)
			if token == WildcardAgent {
				if wildcard == nil {
					wildcard = b
				}
				continue
			}
			if ua == "" {
				continue
			}
			if strings.Contains(token, ua) || strings.Contains(ua, token) {
				if len(token) > bestLen {
					best = b
					bestLen = len(token)
				}
			}
		}
	}

	if best == nil {
		best = wildcard
	}
	if best == nil {
		return nil, nil
	}
	return best.allows, best.disallows
}

// parseBlocks splits a robots.txt document into records. Multiple
// consecutive User-agent lines share the ruleset that follows them; a
// User-agent line after at least one rule starts a new record.
func parseBlocks(text string) []agentBlock {
	var blocks []agentBlock
	var cur *agentBlock
	inRules := false

	for _, line := range strings.Split(text, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		field = strings.ToLower(strings.TrimSpace(field))
		value = strings.TrimSpace(value)

		switch field {
		case "user-agent":
			if cur == nil || inRules {
				blocks = append(blocks, agentBlock{})
				cur = &blocks[len(blocks)-1]
				inRules = false
			}
			cur.agents = append(cur.agents, value)
		case "allow":
			if cur == nil {
				continue
			}
			inRules = true
			if value != "" {
				cur.allows = append(cur.allows, value)
			}
		case "disallow":
			if cur == nil {
				continue
			}
			inRules = true
			if value != "" {
				cur.disallows = append(cur.disallows, value)
			}
		}
	}
	return blocks
}

// compileRules turns rule paths into anchored patterns: literal
// characters are escaped, "*" matches any sequence, and a trailing "$"
// anchors the rule at the end of the URL. Anything else is a prefix
// match.
func compileRules(paths []string) []rule {
	rules := make([]rule, 0, len(paths))
	for _, p := range paths {
		pattern := regexp.QuoteMeta(p)
		pattern = strings.ReplaceAll(pattern, `\*`, ".*")
		if strings.HasSuffix(pattern, `\$`) {
			pattern = strings.TrimSuffix(pattern, `\$`) + "$"
		}
		re, err := regexp.Compile("^" + pattern)
		if err != nil {
			continue
		}
		rules = append(rules, rule{literal: p, re: re})
	}
	return rules
}

// IsAllowed reports whether rawURL may be fetched. Rules apply to
// path+query only; scheme and authority are stripped before matching.
// If both sides match, the longer literal rule wins, with allow winning
// exact-length ties. No matching rule on either side means allowed.
func (r *Rules) IsAllowed(rawURL string) bool {
	target := pathAndQuery(rawURL)

	allow := longestMatch(r.allows, target)
	disallow := longestMatch(r.disallows, target)

	switch {
	case allow == "" && disallow == "":
		return true
	case disallow == "":
		return true
	case allow == "":
		return false
	default:
		return len(allow) >= len(disallow)
	}
}

// longestMatch returns the literal of the most specific rule matching
// target, or "" when none matches.
func longestMatch(rules []rule, target string) string {
	best := ""
	for _, ru := range rules {
		if ru.re.MatchString(target) && len(ru.literal) > len(best) {
			best = ru.literal
		}
	}
	return best
}

// pathAndQuery reduces a URL to the portion robots rules match against.
func pathAndQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}
