package ginsync

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/Saksham20/ginsync/cache"
)

// Auth represents authentication credentials for remote operations. It is
// satisfied by go-git's transport.AuthMethod implementations; use the
// constructors in auth.go rather than building values by hand. nil means
// anonymous access.
type Auth interface{}

// Source describes one remote fixture dataset and where it lands locally.
type Source struct {
	// Name is a short stable slug identifying the dataset. It appears
	// verbatim in cache keys, so renaming a source orphans its cached
	// entries.
	Name string `yaml:"name"`

	// Remote is the address of the dataset repository: https, ssh, or a
	// local path.
	Remote string `yaml:"remote"`

	// Subpaths restricts retrieval to the listed path prefixes within the
	// repository tree. Empty means the whole tree.
	Subpaths []string `yaml:"subpaths,omitempty"`

	// LocalPath is the directory the dataset tree is materialized into. Its
	// previous contents are replaced on every sync.
	LocalPath string `yaml:"localPath"`

	// Salt overrides the syncer-wide cache salt for this source when set.
	Salt *int `yaml:"salt,omitempty"`
}

var sourceNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Validate checks that the source is well formed. All violations are
// reported as ErrInvalidSource.
func (s Source) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSource)
	}
	if !sourceNameRe.MatchString(s.Name) {
		return fmt.Errorf("%w: name %q must be a lowercase slug", ErrInvalidSource, s.Name)
	}
	if s.Remote == "" {
		return fmt.Errorf("%w: source %s: remote is required", ErrInvalidSource, s.Name)
	}
	if s.LocalPath == "" {
		return fmt.Errorf("%w: source %s: localPath is required", ErrInvalidSource, s.Name)
	}
	if s.Salt != nil && *s.Salt < 0 {
		return fmt.Errorf("%w: source %s: salt must not be negative", ErrInvalidSource, s.Name)
	}
	for _, p := range s.Subpaths {
		cleaned := path.Clean(p)
		if p == "" || path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
			return fmt.Errorf("%w: source %s: subpath %q must be a relative path inside the repository", ErrInvalidSource, s.Name, p)
		}
	}
	return nil
}

// ValidateSources checks every source and rejects duplicate names.
func ValidateSources(sources []Source) error {
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if err := src.Validate(); err != nil {
			return err
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, src.Name)
		}
		seen[src.Name] = struct{}{}
	}
	return nil
}

// Key is a derived cache key together with its fallback prefixes.
type Key struct {
	// Value is the full key: it changes whenever the upstream revision or
	// the salt changes.
	Value string

	// RestoreKeys are literal prefixes of Value, ordered most specific
	// first. A store may serve an older entry matching one of them when the
	// exact key is absent.
	RestoreKeys []string
}

// Outcome classifies how a pipeline finished.
type Outcome int

const (
	// OutcomeFailed means the pipeline did not produce a usable tree. It is
	// the zero value, so an unpopulated Result reads as failed.
	OutcomeFailed Outcome = iota
	// OutcomeFetched means the tree was retrieved from the remote.
	OutcomeFetched
	// OutcomeSkipped means an exact cache hit supplied the tree without
	// touching the remote.
	OutcomeSkipped
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeFetched:
		return "fetched"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports the outcome of one source's pipeline.
type Result struct {
	// Name is the source name.
	Name string
	// Revision is the resolved head revision. Empty if resolution failed.
	Revision string
	// Key is the derived cache key. Empty if resolution failed.
	Key string
	// Hit reports what the cache lookup found.
	Hit cache.HitKind
	// State is the terminal pipeline state: StateDone, StateFatal, or
	// StateIdle when the source was rejected before starting.
	State State
	// Outcome classifies the result.
	Outcome Outcome
	// Saved reports whether a fresh cache entry was stored.
	Saved bool
	// DurationResolve is the time spent resolving the head revision.
	DurationResolve time.Duration
	// DurationFetch is the time spent fetching. Zero when skipped.
	DurationFetch time.Duration
	// Err carries the pipeline failure, if any, as a *PipelineError.
	Err error
}

// Summary aggregates the results of a SyncAll run.
type Summary struct {
	// Results holds one entry per source, in input order.
	Results []Result
}

// Fetched returns the number of sources that fetched fresh data.
func (s *Summary) Fetched() int { return s.count(OutcomeFetched) }

// Skipped returns the number of sources served entirely from cache.
func (s *Summary) Skipped() int { return s.count(OutcomeSkipped) }

// Failed returns the number of sources that failed.
func (s *Summary) Failed() int { return s.count(OutcomeFailed) }

// Failures returns the results of all failed sources.
func (s *Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Outcome == OutcomeFailed {
			out = append(out, r)
		}
	}
	return out
}

func (s *Summary) count(o Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}
