package source

import (
	"net/url"
	"strings"
)

// Rule pairs a link predicate with the kind it selects.
type Rule struct {
	Name  string
	Match func(link string) bool
	Kind  Kind
}

// Router classifies links into source kinds by walking an ordered rule list.
// The first matching rule wins; links matching nothing classify as KindWeb.
// Routing is pure and has no failure mode.
type Router struct {
	rules []Rule
}

// NewRouter returns a router preloaded with the built-in rules.
func NewRouter() *Router {
	return &Router{rules: builtinRules()}
}

// Append adds custom rules after the built-in ones. Used by plugin-defined
// extractors.
func (r *Router) Append(rules ...Rule) {
	for _, rule := range rules {
		if rule.Match == nil || rule.Kind == "" {
			continue
		}
		r.rules = append(r.rules, rule)
	}
}

// Classify returns the kind for a link.
func (r *Router) Classify(link string) Kind {
	for _, rule := range r.rules {
		if rule.Match(link) {
			return rule.Kind
		}
	}
	return KindWeb
}

// HostRule builds a rule that selects kind for links on any of the given
// hosts or their subdomains.
func HostRule(name string, kind Kind, hosts ...string) Rule {
	return Rule{Name: name, Match: hostMatcher(hosts...), Kind: kind}
}

func builtinRules() []Rule {
	return []Rule{
		{Name: "code-repository", Match: hostMatcher("github.com", "gitlab.com"), Kind: KindRepo},
		{Name: "video", Match: hostMatcher("youtube.com", "youtu.be", "vimeo.com"), Kind: KindVideo},
		{Name: "social-post", Match: hostMatcher("twitter.com", "x.com", "reddit.com", "bsky.app", "mastodon.social"), Kind: KindSocial},
	}
}

// hostMatcher matches a link whose host equals or is a subdomain of one of
// the given hosts.
func hostMatcher(hosts ...string) func(string) bool {
	return func(link string) bool {
		host := linkHost(link)
		if host == "" {
			return false
		}
		for _, candidate := range hosts {
			if host == candidate || strings.HasSuffix(host, "."+candidate) {
				return true
			}
		}
		return false
	}
}

func linkHost(link string) string {
	trimmed := strings.TrimSpace(link)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
}
