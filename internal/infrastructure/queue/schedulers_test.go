package queue

import (
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-backoffice/internal/config"
	"restaurant-backoffice/internal/shared"
)

type fakeRegistrar struct {
	specs []string
	types []string
	err   error
}

func (f *fakeRegistrar) Register(cronspec string, task *asynq.Task, _ ...asynq.Option) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.specs = append(f.specs, cronspec)
	f.types = append(f.types, task.Type())
	return "entry-1", nil
}

func TestRegisterJobs(t *testing.T) {
	reg := &fakeRegistrar{}
	s := &Scheduler{registrar: reg, jobConfig: config.QueueConfig{DeactivateExpiredCron: "*/30 * * * *"}}

	require.NoError(t, s.RegisterJobs())
	assert.Equal(t, []string{"*/30 * * * *"}, reg.specs)
	assert.Equal(t, []string{shared.TypePromotionDeactivateExpired}, reg.types)
}

func TestRegisterJobs_Error(t *testing.T) {
	s := &Scheduler{registrar: &fakeRegistrar{err: errors.New("bad cron")}, jobConfig: config.QueueConfig{DeactivateExpiredCron: "nope"}}

	assert.Error(t, s.RegisterJobs())
}
