package store

import (
	"sort"
	"time"

	"sitemonitor/models"
)

// Snapshot is an immutable in-memory copy of the three read-only
// datasets, taken once per report run. All timestamps are normalized to
// UTC and each site's observations are sorted by time, so window lookups
// are binary searches. The anchor is the latest observation timestamp
// across every site; report windows end there rather than at wall-clock
// now, which keeps a report reproducible against a fixed dataset.
type Snapshot struct {
	anchor    time.Time
	siteIDs   []string
	obs       map[string][]models.Observation
	rules     map[string][]models.BusinessHoursRule
	timezones map[string]string
}

// NewSnapshot builds a snapshot from raw rows. Observations are sorted
// by (timestamp, status) per site; when several observations share one
// instant only the last in that order is kept, so duplicate polls
// resolve deterministically.
func NewSnapshot(observations []models.Observation, rules []models.BusinessHoursRule, timezones map[string]string) *Snapshot {
	s := &Snapshot{
		obs:       make(map[string][]models.Observation),
		rules:     make(map[string][]models.BusinessHoursRule),
		timezones: make(map[string]string, len(timezones)),
	}

	ids := make(map[string]struct{})
	for _, o := range observations {
		o.Timestamp = o.Timestamp.UTC()
		s.obs[o.SiteID] = append(s.obs[o.SiteID], o)
		ids[o.SiteID] = struct{}{}
		if o.Timestamp.After(s.anchor) {
			s.anchor = o.Timestamp
		}
	}
	for _, r := range rules {
		s.rules[r.SiteID] = append(s.rules[r.SiteID], r)
		ids[r.SiteID] = struct{}{}
	}
	for siteID, tz := range timezones {
		s.timezones[siteID] = tz
		ids[siteID] = struct{}{}
	}

	for siteID, obs := range s.obs {
		sort.SliceStable(obs, func(i, j int) bool {
			if !obs[i].Timestamp.Equal(obs[j].Timestamp) {
				return obs[i].Timestamp.Before(obs[j].Timestamp)
			}
			return obs[i].Status < obs[j].Status
		})
		s.obs[siteID] = dedupeInstants(obs)
	}

	s.siteIDs = make([]string, 0, len(ids))
	for siteID := range ids {
		s.siteIDs = append(s.siteIDs, siteID)
	}
	sort.Strings(s.siteIDs)

	return s
}

// dedupeInstants keeps the last of any run of equal timestamps. The
// input must already be sorted.
func dedupeInstants(obs []models.Observation) []models.Observation {
	if len(obs) < 2 {
		return obs
	}
	out := obs[:0]
	for i, o := range obs {
		if i+1 < len(obs) && obs[i+1].Timestamp.Equal(o.Timestamp) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Anchor returns the latest observation timestamp in the snapshot, or
// the zero time when the snapshot holds no observations at all.
func (s *Snapshot) Anchor() time.Time { return s.anchor }

// SiteIDs returns every site id appearing in observations, business
// hours or timezones, ascending. Callers must not modify the slice.
func (s *Snapshot) SiteIDs() []string { return s.siteIDs }

// Observations returns all observations for a site, sorted by time.
func (s *Snapshot) Observations(siteID string) []models.Observation {
	return s.obs[siteID]
}

// ObservationsIn returns the site's observations with timestamps in
// [start, end). The slice aliases snapshot storage; callers must not
// modify it.
func (s *Snapshot) ObservationsIn(siteID string, start, end time.Time) []models.Observation {
	obs := s.obs[siteID]
	lo := sort.Search(len(obs), func(i int) bool { return !obs[i].Timestamp.Before(start) })
	hi := sort.Search(len(obs), func(i int) bool { return !obs[i].Timestamp.Before(end) })
	return obs[lo:hi]
}

// LastBefore returns the latest observation strictly before t, if any.
func (s *Snapshot) LastBefore(siteID string, t time.Time) (models.Observation, bool) {
	obs := s.obs[siteID]
	idx := sort.Search(len(obs), func(i int) bool { return !obs[i].Timestamp.Before(t) })
	if idx == 0 {
		return models.Observation{}, false
	}
	return obs[idx-1], true
}

// Rules returns the site's business-hours rules in storage order.
func (s *Snapshot) Rules(siteID string) []models.BusinessHoursRule {
	return s.rules[siteID]
}

// Timezone returns the site's IANA timezone name, falling back to
// DefaultTimezone when the site has no entry.
func (s *Snapshot) Timezone(siteID string) string {
	if tz, ok := s.timezones[siteID]; ok && tz != "" {
		return tz
	}
	return models.DefaultTimezone
}

// TotalObservations counts observations across all sites after
// duplicate-instant resolution.
func (s *Snapshot) TotalObservations() int {
	n := 0
	for _, obs := range s.obs {
		n += len(obs)
	}
	return n
}
