package playback

import "fmt"

// State is a coordinator run phase
type State int

const (
	StateInit State = iota
	StateMetadataLoading
	StateMetadataReady
	StateEpisodesLoading
	StateEpisodesReady
	StateSourceResolving
	StateReady
	StateFailed
)

var stateNames = [...]string{
	StateInit:            "init",
	StateMetadataLoading: "metadata_loading",
	StateMetadataReady:   "metadata_ready",
	StateEpisodesLoading: "episodes_loading",
	StateEpisodesReady:   "episodes_ready",
	StateSourceResolving: "source_resolving",
	StateReady:           "ready",
	StateFailed:          "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition follows
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// StateFunc observes every transition of a run
type StateFunc func(runID string, from, to State)

// ErrorKind classifies coordinator failures and warnings
type ErrorKind int

const (
	KindMetadataFetchFailed ErrorKind = iota + 1
	KindEpisodeListFetchFailed
	KindNoEpisodesAvailable
	KindNoServersAvailable
	KindNoPlayableSourceFound
	KindMirrorMismatch
	KindProviderNotLinked // soft, auto-link only
)

func (k ErrorKind) String() string {
	switch k {
	case KindMetadataFetchFailed:
		return "metadata_fetch_failed"
	case KindEpisodeListFetchFailed:
		return "episode_list_fetch_failed"
	case KindNoEpisodesAvailable:
		return "no_episodes_available"
	case KindNoServersAvailable:
		return "no_servers_available"
	case KindNoPlayableSourceFound:
		return "no_playable_source_found"
	case KindMirrorMismatch:
		return "mirror_mismatch"
	case KindProviderNotLinked:
		return "provider_not_linked"
	default:
		return "unknown"
	}
}

// Error is the only error type Resolve returns
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }
