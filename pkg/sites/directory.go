// pkg/sites/directory.go

package sites

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Directory resolves URLs and free-text names to site configurations.
type Directory struct {
	sites map[string]*Site
	keys  []string // stable iteration order
}

// directoryDoc is the top-level YAML document.
type directoryDoc struct {
	Sites map[string]*Site `yaml:"sites"`
}

// Load reads a site directory document from a YAML file and validates
// it. A document with an unknown placeholder, an empty selector, or a
// step-less flow never reaches a browser session: a misspelled
// placeholder would otherwise be typed into the site verbatim while the
// vault receives the real secret.
func Load(ctx context.Context, path string) (*Directory, error) {
	var doc directoryDoc
	if err := kyklos_io.ReadYAML(ctx, path, &doc); err != nil {
		return nil, err
	}

	dir := &Directory{sites: make(map[string]*Site, len(doc.Sites))}
	for key, site := range doc.Sites {
		site.Key = key
		dir.sites[key] = site
		dir.keys = append(dir.keys, key)
	}
	sort.Strings(dir.keys)

	if err := dir.Validate(); err != nil {
		return nil, cerr.Wrapf(err, "site directory %s", path)
	}

	otelzap.Ctx(ctx).Debug("Site directory loaded",
		zap.String("path", path),
		zap.Int("sites", len(dir.sites)))
	return dir, nil
}

// NewDirectory builds a directory from already-constructed sites. Used
// by tests and by validation of in-memory documents.
func NewDirectory(sites map[string]*Site) *Directory {
	dir := &Directory{sites: make(map[string]*Site, len(sites))}
	for key, site := range sites {
		site.Key = key
		dir.sites[key] = site
		dir.keys = append(dir.keys, key)
	}
	sort.Strings(dir.keys)
	return dir
}

// Sites returns all sites in stable key order.
func (d *Directory) Sites() []*Site {
	out := make([]*Site, 0, len(d.keys))
	for _, key := range d.keys {
		out = append(out, d.sites[key])
	}
	return out
}

// Get returns a site by exact key.
func (d *Directory) Get(key string) (*Site, bool) {
	site, ok := d.sites[key]
	return site, ok
}

// Resolve maps a URL or a free-text name to a site configuration.
// Absence of configuration is an expected, common case (manual-only
// sites), so no match returns (nil, false), never an error.
func (d *Directory) Resolve(identifier string) (*Site, bool) {
	if identifier == "" {
		return nil, false
	}
	if host := hostOf(identifier); host != "" {
		return d.resolveHost(host)
	}
	return d.resolveName(identifier)
}

func (d *Directory) resolveHost(host string) (*Site, bool) {
	for _, key := range d.keys {
		site := d.sites[key]
		for _, domain := range site.Domains {
			if MatchDomain(host, domain) {
				return site, true
			}
		}
	}
	return nil, false
}

func (d *Directory) resolveName(name string) (*Site, bool) {
	// Exact key match first.
	if site, ok := d.sites[name]; ok {
		return site, true
	}

	needle := strings.ToLower(name)
	for _, key := range d.keys {
		site := d.sites[key]
		if strings.Contains(strings.ToLower(site.Name), needle) {
			return site, true
		}
		for _, domain := range site.Domains {
			if strings.Contains(strings.ToLower(domain), needle) {
				return site, true
			}
		}
	}
	return nil, false
}

// MatchDomain reports whether a hostname matches a configured domain.
// The match is a bidirectional substring test, which deliberately
// tolerates regional and mobile subdomains ("m.bank.example" matches
// "bank.example") at the cost of over-matching short fragments. The
// policy lives in this one function so it is explicit and swappable.
func MatchDomain(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	if host == "" || domain == "" {
		return false
	}
	return strings.Contains(host, domain) || strings.Contains(domain, host)
}

// hostOf extracts a normalized hostname from an identifier that looks
// like a URL, stripping a leading "www.". Returns empty for free-text
// identifiers.
func hostOf(identifier string) string {
	raw := identifier
	if !strings.Contains(raw, "://") {
		if !strings.Contains(raw, ".") || strings.ContainsAny(raw, " \t") {
			return ""
		}
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
