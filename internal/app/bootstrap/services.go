// internal/app/bootstrap/services.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/projecthub/internal/app/policy/teampolicy"
	"github.com/dalemusser/projecthub/internal/app/policy/visibility"
	"github.com/dalemusser/projecthub/internal/app/services/lifecycle"
	"github.com/dalemusser/projecthub/internal/app/services/notify"
	"github.com/dalemusser/projecthub/internal/app/services/tasks"
	"github.com/dalemusser/projecthub/internal/app/services/teamrequests"
	"github.com/dalemusser/projecthub/internal/app/services/teams"
	notificationstore "github.com/dalemusser/projecthub/internal/app/store/notifications"
	projectstore "github.com/dalemusser/projecthub/internal/app/store/projects"
	taskstore "github.com/dalemusser/projecthub/internal/app/store/tasks"
	teamstore "github.com/dalemusser/projecthub/internal/app/store/teams"
	userstore "github.com/dalemusser/projecthub/internal/app/store/users"
	"github.com/dalemusser/projecthub/internal/app/system/realtime"
	"github.com/dalemusser/projecthub/internal/app/system/workers"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Services is the wired object graph shared by the HTTP handlers, the
// background worker and the admin CLI.
type Services struct {
	Users         *userstore.Store
	Teams         *teamstore.Store
	Projects      *projectstore.Store
	Tasks         *taskstore.Store
	Notifications *notificationstore.Store

	Index      *teampolicy.Index
	Filter     *visibility.Filter
	Dispatcher *notify.Dispatcher

	Lifecycle    *lifecycle.Manager
	TaskService  *tasks.Service
	TeamService  *teams.Service
	TeamRequests *teamrequests.Service
}

// NewServices builds the stores and services over db. rdb may be nil.
func NewServices(db *mongo.Database, rdb *redis.Client, baseURL string, logger *zap.Logger) *Services {
	s := &Services{
		Users:         userstore.New(db),
		Teams:         teamstore.New(db),
		Projects:      projectstore.New(db),
		Tasks:         taskstore.New(db),
		Notifications: notificationstore.New(db),
	}
	s.Index = teampolicy.NewIndex(s.Teams)
	s.Filter = visibility.New(s.Index)

	opts := []notify.Option{notify.WithBaseURL(baseURL)}
	if rdb != nil {
		opts = append(opts, notify.WithPublisher(realtime.NewPublisher(rdb, logger)))
	}
	s.Dispatcher = notify.New(s.Notifications, logger, opts...)

	s.Lifecycle = lifecycle.New(lifecycle.Deps{
		Projects: s.Projects,
		Tasks:    s.Tasks,
		Teams:    s.Teams,
		Users:    s.Users,
		Filter:   s.Filter,
		Index:    s.Index,
		Notifier: s.Dispatcher,
		Logger:   logger,
	})
	s.TaskService = tasks.New(tasks.Deps{
		Tasks:    s.Tasks,
		Projects: s.Projects,
		Teams:    s.Teams,
		Users:    s.Users,
		Index:    s.Index,
		Notifier: s.Dispatcher,
		Logger:   logger,
	})
	s.TeamService = teams.New(teams.Deps{
		Teams:  s.Teams,
		Users:  s.Users,
		Filter: s.Filter,
		Index:  s.Index,
		Logger: logger,
	})
	s.TeamRequests = teamrequests.New(s.Teams, s.Users, s.Dispatcher, logger)
	return s
}

// DeadlineReminder builds the reminder worker over these services.
func (s *Services) DeadlineReminder(logger *zap.Logger, interval, window time.Duration) *workers.DeadlineReminder {
	return workers.NewDeadlineReminder(s.Projects, s.Tasks, s.Teams, s.Dispatcher, logger, interval, window)
}
