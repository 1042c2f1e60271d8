package ingestor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/pagestreamhq/pagestream/protocol"
)

// scheduleRequest is the control-plane body for start/restart/update. Either
// cronSchedule or schedule+triggerType must be present.
type scheduleRequest struct {
	PageId       string   `json:"pageId"`
	PostIds      []string `json:"postIds"`
	CronSchedule string   `json:"cronSchedule"`
	Schedule     int      `json:"schedule"`
	TriggerType  string   `json:"triggerType"`
}

type schedulerResponse struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	JobsInfo []JobInfo `json:"jobs_info"`
}

func (req *scheduleRequest) trigger() (*Trigger, error) {
	if req.CronSchedule != "" {
		return NewCronTrigger(req.CronSchedule)
	}
	switch TriggerKind(req.TriggerType) {
	case TriggerInterval:
		return NewIntervalTrigger(req.Schedule)
	case TriggerCron:
		return NewCronTrigger(req.CronSchedule)
	default:
		return nil, ErrInvalidTrigger
	}
}

func (req *scheduleRequest) targets(kind protocol.Kind) []string {
	if kind == protocol.KindPosts {
		return []string{req.PageId}
	}
	return req.PostIds
}

// AddSchedulerRoutes mounts the control plane of the scheduler onto rg,
// one resource per kind.
func AddSchedulerRoutes(rg *gin.RouterGroup, s *Scheduler) {
	posts := rg.Group("/posts")
	posts.POST("/start", controlHandler(s, protocol.KindPosts, opStart))
	posts.POST("/stop", controlHandler(s, protocol.KindPosts, opStop))
	posts.POST("/restart", controlHandler(s, protocol.KindPosts, opRestart))
	posts.POST("/update", controlHandler(s, protocol.KindPosts, opUpdate))
	posts.GET("/status", statusHandler(s, protocol.KindPosts))

	comments := rg.Group("/comments")
	comments.POST("/start", controlHandler(s, protocol.KindComments, opStart))
	comments.POST("/stop", controlHandler(s, protocol.KindComments, opStop))
	comments.POST("/restart", controlHandler(s, protocol.KindComments, opRestart))
	comments.POST("/update", controlHandler(s, protocol.KindComments, opUpdate))
	comments.GET("/status", statusHandler(s, protocol.KindComments))
	comments.POST("/add-posts", targetsHandler(s, s.AddTargets))
	comments.POST("/remove-posts", targetsHandler(s, s.RemoveTargets))
}

type controlOp int

const (
	opStart controlOp = iota
	opStop
	opRestart
	opUpdate
)

func controlHandler(s *Scheduler, kind protocol.Kind, op controlOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		if op == opStop {
			s.Stop(kind)
			c.JSON(http.StatusOK, schedulerResponse{
				Status:   "ok",
				Message:  kind.String() + " job stopped",
				JobsInfo: []JobInfo{s.Status(kind)},
			})
			return
		}

		req := scheduleRequest{}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, schedulerResponse{Status: "error", Message: err.Error()})
			return
		}

		trigger, err := req.trigger()
		if err != nil {
			// Malformed schedules are operator errors, but historically they
			// surface as 500 with a descriptive message.
			c.JSON(http.StatusInternalServerError, schedulerResponse{Status: "error", Message: err.Error()})
			return
		}

		var info JobInfo
		switch op {
		case opStart:
			info, err = s.Start(kind, req.targets(kind), trigger)
		case opRestart:
			info, err = s.Restart(kind, req.targets(kind), trigger)
		case opUpdate:
			info, err = s.Update(kind, req.targets(kind), trigger)
		}
		if err != nil {
			c.JSON(controlErrorCode(err), schedulerResponse{Status: "error", Message: controlErrorMessage(kind, err)})
			return
		}

		c.JSON(http.StatusOK, schedulerResponse{
			Status:   "ok",
			Message:  kind.String() + " job scheduled",
			JobsInfo: []JobInfo{info},
		})
	}
}

func statusHandler(s *Scheduler, kind protocol.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, schedulerResponse{
			Status:   "ok",
			JobsInfo: []JobInfo{s.Status(kind)},
		})
	}
}

func targetsHandler(s *Scheduler, apply func(protocol.Kind, []string) (JobInfo, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids := []string{}
		if err := c.ShouldBindJSON(&ids); err != nil {
			c.JSON(http.StatusBadRequest, schedulerResponse{Status: "error", Message: err.Error()})
			return
		}

		info, err := apply(protocol.KindComments, ids)
		if err != nil {
			c.JSON(controlErrorCode(err), schedulerResponse{Status: "error", Message: controlErrorMessage(protocol.KindComments, err)})
			return
		}
		c.JSON(http.StatusOK, schedulerResponse{
			Status:   "ok",
			Message:  "comments job targets updated",
			JobsInfo: []JobInfo{info},
		})
	}
}

func controlErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrNotRunning), errors.Is(err, ErrAlreadyRunning):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func controlErrorMessage(kind protocol.Kind, err error) string {
	if errors.Is(err, ErrNotRunning) {
		return kind.String() + " job is not running"
	}
	return err.Error()
}
