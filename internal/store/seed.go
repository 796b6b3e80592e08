package store

import (
	"fmt"
	"time"
)

// Seed replaces all tracking data with a small demo hierarchy and three
// closed entries on the local day of date:
//
//	Client > Projet A > Montage (Derush, Timeline), Motion
//	Perso  > Projet B > Admin, Sport (Running)
//
// Working hours, break rules and settings are kept.
func (s *Store) Seed(date time.Time, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	if err := s.Reset(); err != nil {
		return err
	}

	d := date.In(loc)
	at := func(hh, mm int) int64 {
		return time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, loc).Unix()
	}

	client, err := s.CreateCategory("Client", 0)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	perso, err := s.CreateCategory("Perso", 1)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	projetA, err := s.CreateProject(client.ID, "Projet A", "", 0)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	projetB, err := s.CreateProject(perso.ID, "Projet B", "", 0)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	type demoTask struct {
		project int64
		parent  *int64
		name    string
		sort    int
		tags    []string
	}
	ids := make(map[string]int64)
	for _, dt := range []demoTask{
		{project: projetA.ID, name: "Montage", tags: []string{"montage"}},
		{project: projetA.ID, name: "Motion", sort: 1, tags: []string{"motion"}},
		{project: projetB.ID, name: "Admin"},
		{project: projetB.ID, name: "Sport", sort: 1},
	} {
		t, err := s.CreateTask(dt.project, dt.parent, dt.name, "", dt.sort)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		ids[dt.name] = t.ID
		if len(dt.tags) > 0 {
			if err := s.SetTaskTags(t.ID, dt.tags); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
		}
	}

	montage, sport := ids["Montage"], ids["Sport"]
	for _, dt := range []demoTask{
		{project: projetA.ID, parent: &montage, name: "Derush", tags: []string{"montage"}},
		{project: projetA.ID, parent: &montage, name: "Timeline", sort: 1, tags: []string{"montage"}},
		{project: projetB.ID, parent: &sport, name: "Running"},
	} {
		t, err := s.CreateTask(dt.project, dt.parent, dt.name, "", dt.sort)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		ids[dt.name] = t.ID
		if len(dt.tags) > 0 {
			if err := s.SetTaskTags(t.ID, dt.tags); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
		}
	}

	entries := []struct {
		task       string
		start, end int64
	}{
		{"Motion", at(9, 0), at(10, 0)},
		{"Derush", at(10, 15), at(11, 0)},
		{"Running", at(11, 15), at(12, 0)},
	}
	for _, e := range entries {
		if _, err := s.CreateManualEntry(ids[e.task], e.start, e.end, "Seeded demo entry"); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}
