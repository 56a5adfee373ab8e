package playback

// State is a snapshot of a review view's playback position.
type State struct {
	CurrentTime   float64 `json:"current_time"`
	IsScrubbing   bool    `json:"is_scrubbing"`
	ActiveSegment int     `json:"active_segment"`
	PlayerTime    float64 `json:"player_time"`
	Playing       bool    `json:"playing"`
	MainCamera    string  `json:"main_camera"`
}

// TimeStore holds the authoritative current time. CurrentTime is where the
// user wants to be; PlayerTime is what the main player last reported and may
// lag behind during seeks.
type TimeStore struct {
	state State
}

func NewTimeStore(start float64) *TimeStore {
	return &TimeStore{state: State{CurrentTime: start, PlayerTime: start}}
}

func (s *TimeStore) State() State { return s.state }

func (s *TimeStore) CurrentTime() float64 { return s.state.CurrentTime }

func (s *TimeStore) IsScrubbing() bool { return s.state.IsScrubbing }

func (s *TimeStore) SetCurrentTime(t float64) {
	s.state.CurrentTime = t
}

func (s *TimeStore) SetScrubbing(b bool) {
	s.state.IsScrubbing = b
}

// ReportPlayerTime records a player "timeupdate". CurrentTime follows the
// player only while the user is not dragging. It reports whether CurrentTime
// changed.
func (s *TimeStore) ReportPlayerTime(t float64) bool {
	s.state.PlayerTime = t
	if s.state.IsScrubbing || s.state.CurrentTime == t {
		return false
	}
	s.state.CurrentTime = t
	return true
}

func (s *TimeStore) recordPlayerTime(t float64) { s.state.PlayerTime = t }

func (s *TimeStore) setActiveSegment(i int) { s.state.ActiveSegment = i }

func (s *TimeStore) setPlaying(b bool) { s.state.Playing = b }

func (s *TimeStore) setMainCamera(camera string) { s.state.MainCamera = camera }
