package feedback

import "context"

type Stats struct {
	Total         int            `json:"total"`
	Open          int            `json:"open"`
	Closed        int            `json:"closed"`
	ByFlow        map[Flow]int   `json:"by_flow"`
	ByStatus      map[Status]int `json:"by_status"`
	ByCategory    map[string]int `json:"by_category"`
	AverageRating float64        `json:"average_rating"`
	HighRated     int            `json:"high_rated"`
	LowRated      int            `json:"low_rated"`
	Positive      int            `json:"positive"`
	Negative      int            `json:"negative"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(all), nil
}

// Summarize aggregates feedback. Unrated items (rating 0) are left out of
// the average and the rating bands.
func Summarize(all []Feedback) Stats {
	st := Stats{
		ByFlow:     map[Flow]int{},
		ByStatus:   map[Status]int{},
		ByCategory: map[string]int{},
	}
	var sum, rated int
	for _, f := range all {
		st.Total++
		st.ByFlow[f.Flow]++
		st.ByStatus[f.Status]++
		st.ByCategory[f.Category]++
		if f.Status.Open() {
			st.Open++
		} else {
			st.Closed++
		}
		switch f.Sentiment {
		case SentimentPositive:
			st.Positive++
		case SentimentNegative:
			st.Negative++
		}
		if f.Rating == 0 {
			continue
		}
		rated++
		sum += f.Rating
		switch {
		case f.Rating >= 4:
			st.HighRated++
		case f.Rating <= 2:
			st.LowRated++
		}
	}
	if rated > 0 {
		st.AverageRating = float64(sum) / float64(rated)
	}
	return st
}
