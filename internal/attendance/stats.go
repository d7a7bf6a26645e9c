package attendance

import (
	"context"

	"confattend/internal/schedule"
	"confattend/internal/zones"
)

type DayStats struct {
	Attended int                  `json:"attended"`
	Sessions map[schedule.Key]int `json:"sessions"`
	Manual   int                  `json:"manual"`
	Late     int                  `json:"late"`
}

type ZoneStats struct {
	Zone       string `json:"zone"`
	Registered int    `json:"registered"`
	Day1       int    `json:"day1"`
	Day2       int    `json:"day2"`
	Manual     int    `json:"manual"`
}

type Stats struct {
	Registered int         `json:"registered"`
	BothDays   int         `json:"both_days"`
	Day1       DayStats    `json:"day1"`
	Day2       DayStats    `json:"day2"`
	Manual     int         `json:"manual"`
	Late       int         `json:"late"`
	Zones      []ZoneStats `json:"zones"`
	ZoneOther  ZoneStats   `json:"zone_other"`
}

// Stats aggregates every attendee. Zones follow the live zone list;
// attendees registered under a label no longer in it count as other.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return Stats{}, err
	}
	set, err := s.zones.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(all, s.reg, set.Zones), nil
}

// Summarize is the pure aggregation behind Stats.
func Summarize(all []Attendee, reg *schedule.Registry, zoneList []string) Stats {
	st := Stats{
		Day1:      newDayStats(reg, 1),
		Day2:      newDayStats(reg, 2),
		ZoneOther: ZoneStats{Zone: "Other"},
	}
	idx := make(map[string]int, len(zoneList))
	st.Zones = make([]ZoneStats, len(zoneList))
	for i, z := range zoneList {
		st.Zones[i] = ZoneStats{Zone: z}
		idx[zones.Key(z)] = i
	}

	for _, a := range all {
		st.Registered++
		zs := &st.ZoneOther
		if i, ok := idx[zones.Key(a.Zone)]; ok {
			zs = &st.Zones[i]
		}
		zs.Registered++
		if a.Day1.Attended && a.Day2.Attended {
			st.BothDays++
		}
		manual := false
		for _, d := range Days {
			rec := a.Day(d)
			ds := &st.Day1
			if d == 2 {
				ds = &st.Day2
			}
			if !rec.Attended {
				continue
			}
			ds.Attended++
			ds.Sessions[rec.Session]++
			if rec.ManualEntry {
				ds.Manual++
				manual = true
			}
			if rec.LateMinutes > 0 {
				ds.Late++
			}
			if d == 1 {
				zs.Day1++
			} else {
				zs.Day2++
			}
		}
		if manual {
			zs.Manual++
		}
	}
	st.Manual = st.Day1.Manual + st.Day2.Manual
	st.Late = st.Day1.Late + st.Day2.Late
	return st
}

func newDayStats(reg *schedule.Registry, day int) DayStats {
	ds := DayStats{Sessions: map[schedule.Key]int{}}
	for _, s := range reg.Day(day) {
		ds.Sessions[s.Key] = 0
	}
	return ds
}
