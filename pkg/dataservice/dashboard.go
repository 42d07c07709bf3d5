package dataservice

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// Overview is everything the dashboard page shows.
type Overview struct {
	Stats              DashboardStats `json:"stats"`
	RecentAppointments []Appointment  `json:"recent_appointments"`
	TodayVisits        []Visit        `json:"today_visits"`
}

// Dashboard fetches the headline counters.
func (c *Client) Dashboard(ctx context.Context) (DashboardStats, error) {
	var out DashboardStats
	err := c.do(ctx, "dashboard", http.MethodGet, c.path("dashboard"), nil, &out)
	return out, err
}

// RecentAppointments fetches the most recent appointments.
func (c *Client) RecentAppointments(ctx context.Context) ([]Appointment, error) {
	var out []Appointment
	err := c.do(ctx, ResourceAppointments, http.MethodGet, c.path(ResourceAppointments, "recent"), nil, &out)
	return out, err
}

// TodayVisits fetches the visits scheduled for today.
func (c *Client) TodayVisits(ctx context.Context) ([]Visit, error) {
	var out []Visit
	err := c.do(ctx, ResourceVisits, http.MethodGet, c.path(ResourceVisits, "today"), nil, &out)
	return out, err
}

// Overview fetches the counters, recent appointments and today's visits
// concurrently. The first failure cancels the other requests.
func (c *Client) Overview(ctx context.Context) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Stats, err = c.Dashboard(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.RecentAppointments, err = c.RecentAppointments(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TodayVisits, err = c.TodayVisits(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	if out.RecentAppointments == nil {
		out.RecentAppointments = []Appointment{}
	}
	if out.TodayVisits == nil {
		out.TodayVisits = []Visit{}
	}
	return out, nil
}
