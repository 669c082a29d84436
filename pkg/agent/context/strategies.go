package context

import (
	"github.com/entrhq/surfer/pkg/browser"
)

// FullConversationStrategy replays every step with the full rendering of
// each successful observation.
type FullConversationStrategy struct{}

func (s *FullConversationStrategy) Name() HistoryType { return FullConversation }

func (s *FullConversationStrategy) Render(in *RenderInput) {
	writePreamble(in)
	writeSteps(in, func(obs *browser.Observation) {
		in.Buffer.AddUserMessage(in.Perceiver.Perceive(obs), screenshotOf(in, obs))
	})
}

type dataRendering int

const (
	noData dataRendering = iota
	rawData
	shortData
)

// ShortObservationsStrategy replays decisions and result lines, optionally
// with scraped data, and shows only the latest page in full.
type ShortObservationsStrategy struct {
	data dataRendering
}

func (s *ShortObservationsStrategy) Name() HistoryType {
	switch s.data {
	case rawData:
		return ShortObservationsWithRawData
	case shortData:
		return ShortObservationsWithShortData
	default:
		return ShortObservations
	}
}

func (s *ShortObservationsStrategy) Render(in *RenderInput) {
	writePreamble(in)

	var observe func(obs *browser.Observation)
	if s.data != noData {
		raw := s.data == rawData
		observe = func(obs *browser.Observation) {
			if obs.HasData() {
				in.Buffer.AddUserMessage(in.Perceiver.PerceiveData(obs, raw), nil)
			}
		}
	}
	writeSteps(in, observe)
	writeLastObs(in)
}

// CompressedStrategy folds the whole trajectory into a single message.
type CompressedStrategy struct{}

func (s *CompressedStrategy) Name() HistoryType { return Compressed }

func (s *CompressedStrategy) Render(in *RenderInput) {
	writePreamble(in)
	in.Buffer.AddUserMessage(in.History.Perceive(), nil)
	writeLastObs(in)
}
