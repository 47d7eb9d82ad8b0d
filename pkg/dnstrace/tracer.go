// Package dnstrace follows CNAME alias chains. A hostname parked
// behind a protection edge almost always aliases into the provider's
// domain ("www.example.com -> example.cdn.cloudflare.net"), which makes
// the chain the single most reliable detection signal the engine has.
//
// DNS misconfiguration can create referral loops; the tracer keeps a
// visited set and a hard hop bound so a loop degrades into a truncated
// result instead of hanging the caller.
package dnstrace

import (
	"context"
	"net"
	"sort"
	"strings"

	"github.com/edgeprobe/edgeprobe/pkg/duration"
)

// MaxHops is the chain-length safety bound.
const MaxHops = 10

// Resolver is the lookup surface the tracer needs. *net.Resolver
// satisfies it; tests inject synthetic resolvers to simulate loops.
type Resolver interface {
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Result is one completed trace.
type Result struct {
	// Chain is the alias chain starting at the queried hostname.
	// It never contains a duplicate and never exceeds MaxHops.
	Chain []string `json:"chain"`

	// TerminalAddresses are the address records of the final chain
	// element, sorted for determinism.
	TerminalAddresses []string `json:"terminal_addresses,omitempty"`

	// Truncated is true iff the hop bound or a referral loop stopped
	// the trace before a terminal record. Not an error.
	Truncated bool `json:"truncated"`
}

// Tracer resolves CNAME chains with loop protection and caching.
type Tracer struct {
	resolver Resolver
	cache    *Cache
}

// New creates a Tracer. A nil resolver uses net.DefaultResolver; a nil
// cache disables caching.
func New(resolver Resolver, cache *Cache) *Tracer {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Tracer{resolver: resolver, cache: cache}
}

// Trace follows the CNAME chain from hostname until an address record,
// a resolution error, a loop, or the hop bound. It never returns an
// error: whatever chain was accumulated is the result.
func (t *Tracer) Trace(ctx context.Context, hostname string) *Result {
	hostname = normalize(hostname)

	if t.cache != nil {
		if cached, ok := t.cache.Get(hostname); ok {
			return cached
		}
	}

	ctx, cancel := context.WithTimeout(ctx, duration.DNSLookup*MaxHops)
	defer cancel()

	result := t.trace(ctx, hostname)

	if t.cache != nil {
		t.cache.Put(hostname, result)
	}
	return result
}

func (t *Tracer) trace(ctx context.Context, hostname string) *Result {
	result := &Result{Chain: []string{hostname}}
	visited := map[string]bool{hostname: true}
	current := hostname

	for {
		cname, err := t.resolver.LookupCNAME(ctx, current)
		cname = normalize(cname)

		if err != nil || cname == "" || cname == current {
			// End of the alias chain; pick up the terminal
			// address records if the name has any. A lookup
			// failure here leaves the chain as-is.
			if addrs, aerr := t.resolver.LookupHost(ctx, current); aerr == nil {
				result.TerminalAddresses = dedupSorted(addrs)
			}
			return result
		}

		if visited[cname] || len(result.Chain) >= MaxHops {
			result.Truncated = true
			return result
		}

		result.Chain = append(result.Chain, cname)
		visited[cname] = true
		current = cname
	}
}

func normalize(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}

func dedupSorted(addrs []string) []string {
	seen := make(map[string]bool, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}
