package transport

import (
	"path"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// Discoverer expands device patterns into concrete candidate paths.
type Discoverer struct {
	Glob      func(pattern string) ([]string, error)
	PortsList func() ([]string, error)
}

// DefaultDiscoverer matches the filesystem first, then the serial port list.
func DefaultDiscoverer() Discoverer {
	return Discoverer{
		Glob:      filepath.Glob,
		PortsList: serial.GetPortsList,
	}
}

// Discover expands patterns with the default discoverer.
func Discover(patterns []string) []string {
	return DefaultDiscoverer().Discover(patterns)
}

// Discover returns unique candidates in priority order: filesystem matches for
// each pattern in turn, then enumerated serial ports matching any pattern.
// A pattern with no glob metacharacters is kept as a literal candidate.
func (d Discoverer) Discover(patterns []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(patterns))
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, pattern := range patterns {
		if !hasMeta(pattern) {
			add(pattern)
			continue
		}
		if d.Glob == nil {
			continue
		}
		matches, err := d.Glob(pattern)
		if err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("transport.Discover bad pattern")
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}

	if d.PortsList == nil {
		return out
	}
	ports, err := d.PortsList()
	if err != nil {
		log.Debug().Err(err).Msg("transport.Discover port enumeration failed")
		return out
	}
	for _, dev := range ports {
		for _, pattern := range patterns {
			if ok, _ := path.Match(pattern, dev); ok {
				add(dev)
				break
			}
		}
	}
	return out
}

func hasMeta(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '*', '?', '[', '\\':
			return true
		}
	}
	return false
}
