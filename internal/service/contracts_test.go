package service_test

import (
	"github.com/phrazzld/artisan-api/internal/service"
	"github.com/phrazzld/artisan-api/internal/task"
)

var (
	_ task.TaskTracker  = (*service.TaskService)(nil)
	_ task.ProgressSink = (*service.TaskService)(nil)
)
