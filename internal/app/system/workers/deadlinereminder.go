// internal/app/system/workers/deadlinereminder.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/projecthub/internal/app/services/notify"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ReminderProjects interface {
	ListDueForReminder(ctx context.Context, now, cutoff time.Time) ([]models.Project, error)
	MarkReminded(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type ReminderTasks interface {
	ListDueForReminder(ctx context.Context, now, cutoff time.Time) ([]models.Task, error)
	MarkReminded(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type ReminderTeams interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Team, error)
}

type ReminderNotifier interface {
	Emit(ctx context.Context, m notify.Message) bool
}

// DeadlineReminder is a background worker that sends one deadline-reminder
// per task (to its assignee) and per accepted project (to its team leader)
// whose deadline falls inside the reminder window.
type DeadlineReminder struct {
	projects ReminderProjects
	tasks    ReminderTasks
	teams    ReminderTeams
	notifier ReminderNotifier
	log      *zap.Logger
	interval time.Duration
	window   time.Duration
	now      func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDeadlineReminder creates the worker.
//
// Parameters:
//   - interval: how often to sweep (e.g., 15 minutes)
//   - window: how far ahead a deadline counts as due (e.g., 24 hours)
func NewDeadlineReminder(projects ReminderProjects, tasks ReminderTasks, teams ReminderTeams, notifier ReminderNotifier, logger *zap.Logger, interval, window time.Duration) *DeadlineReminder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineReminder{
		projects: projects,
		tasks:    tasks,
		teams:    teams,
		notifier: notifier,
		log:      logger,
		interval: interval,
		window:   window,
		now:      func() time.Time { return time.Now().UTC() },
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *DeadlineReminder) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("deadline reminder worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("window", w.window))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *DeadlineReminder) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("deadline reminder worker stopped")
}

func (w *DeadlineReminder) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Long(), w.log, "workers.deadline_reminder")
			if _, err := w.RunOnce(ctx); err != nil {
				w.log.Error("deadline reminder sweep failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Sweep counts the reminders sent by one RunOnce.
type Sweep struct {
	Tasks    int
	Projects int
}

// RunOnce performs a single sweep. A target is stamped only after its
// reminder was stored, so failed reminders are retried on the next sweep.
func (w *DeadlineReminder) RunOnce(ctx context.Context) (Sweep, error) {
	now := w.now()
	cutoff := now.Add(w.window)
	var out Sweep

	tasks, err := w.tasks.ListDueForReminder(ctx, now, cutoff)
	if err != nil {
		return out, fmt.Errorf("list tasks due: %w", err)
	}
	for _, t := range tasks {
		if t.AssignedTo == nil || t.DueDate == nil {
			continue
		}
		ok := w.notifier.Emit(ctx, notify.Message{
			Type:      models.NotifyDeadlineReminder,
			Recipient: *t.AssignedTo,
			Target:    models.TaskTarget(t.ID),
			Title:     "Task due soon",
			Message:   fmt.Sprintf("Task %q is due %s.", t.Title, t.DueDate.UTC().Format(time.RFC1123)),
			Data:      map[string]any{"task_title": t.Title, "due_date": t.DueDate.UTC()},
		})
		if !ok {
			continue
		}
		if err := w.tasks.MarkReminded(ctx, t.ID, now); err != nil {
			w.log.Warn("failed to stamp task reminder", zap.String("task_id", t.ID.Hex()), zap.Error(err))
			continue
		}
		out.Tasks++
	}

	projects, err := w.projects.ListDueForReminder(ctx, now, cutoff)
	if err != nil {
		return out, fmt.Errorf("list projects due: %w", err)
	}
	var errs []error
	for _, p := range projects {
		if p.Team == nil || p.Deadline == nil {
			continue
		}
		team, err := w.teams.GetByID(ctx, *p.Team)
		if err != nil {
			errs = append(errs, fmt.Errorf("load team of project %s: %w", p.ID.Hex(), err))
			continue
		}
		ok := w.notifier.Emit(ctx, notify.Message{
			Type:      models.NotifyDeadlineReminder,
			Recipient: team.TeamLeader,
			Target:    models.ProjectTarget(p.ID),
			Title:     "Project deadline approaching",
			Message:   fmt.Sprintf("Project %q is due %s.", p.Name, p.Deadline.UTC().Format(time.RFC1123)),
			Data:      map[string]any{"project_name": p.Name, "team_name": team.Name, "deadline": p.Deadline.UTC()},
		})
		if !ok {
			continue
		}
		if err := w.projects.MarkReminded(ctx, p.ID, now); err != nil {
			w.log.Warn("failed to stamp project reminder", zap.String("project_id", p.ID.Hex()), zap.Error(err))
			continue
		}
		out.Projects++
	}

	if out.Tasks > 0 || out.Projects > 0 {
		w.log.Info("deadline reminders sent",
			zap.Int("tasks", out.Tasks),
			zap.Int("projects", out.Projects))
	}
	return out, errors.Join(errs...)
}
