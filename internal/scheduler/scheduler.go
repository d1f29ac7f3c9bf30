package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/robfig/cron/v3"

	"github.com/orato-labs/speechcoach/internal/buffer"
	"github.com/orato-labs/speechcoach/internal/jobs"
)

// Scheduler drives the two clocks of the system: the periodic buffer sweep
// that times out idle sessions, and the end-of-day rollup batch.
type Scheduler struct {
	buf        *buffer.Buffer
	queue      *jobs.Queue
	cron       *cron.Cron
	sweepEvery time.Duration
	rollupHour int
}

func New(buf *buffer.Buffer, queue *jobs.Queue, sweepEvery time.Duration, rollupHour int) *Scheduler {
	return &Scheduler{
		buf:        buf,
		queue:      queue,
		cron:       cron.New(),
		sweepEvery: sweepEvery,
		rollupHour: rollupHour,
	}
}

func (s *Scheduler) Start() error {
	sweepSpec := fmt.Sprintf("@every %s", s.sweepEvery)
	if _, err := s.cron.AddFunc(sweepSpec, s.sweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	rollupSpec := fmt.Sprintf("0 %d * * *", s.rollupHour)
	if _, err := s.cron.AddFunc(rollupSpec, s.enqueueRollup); err != nil {
		return fmt.Errorf("schedule rollup: %w", err)
	}
	s.cron.Start()
	log.Printf("[scheduler] started (sweep %s, rollup at %02d:00)", s.sweepEvery, s.rollupHour)
	return nil
}

// Stop halts the cron loop and flushes every buffered session so nothing
// finalized is lost across a restart.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	for _, fin := range s.buf.FinalizeAll() {
		s.enqueueAnalysis(fin)
	}
	log.Println("[scheduler] stopped")
}

func (s *Scheduler) sweep() {
	for _, fin := range s.buf.Tick() {
		s.enqueueAnalysis(fin)
	}
}

func (s *Scheduler) enqueueAnalysis(fin *buffer.Finalized) {
	payload := jobs.AnalyzePayload{
		SessionKey:      fin.SessionKey,
		UserID:          fin.UserID.String(),
		StartedAt:       fin.StartedAt,
		EndedAt:         fin.EndedAt,
		DurationSeconds: fin.DurationSeconds,
		Segments:        fin.Segments,
	}
	taskID := analysisTaskID(fin)
	if _, err := s.queue.EnqueueUnique(jobs.TaskAnalyzeSession, payload, taskID); err != nil {
		log.Printf("[scheduler] enqueue analysis for %s: %v", fin.SessionKey, err)
		return
	}
	log.Printf("[scheduler] session %s finalized: %d segments queued for analysis", fin.SessionKey, len(fin.Segments))
}

func (s *Scheduler) enqueueRollup() {
	date := time.Now().Format("2006-01-02")
	payload := jobs.RollupPayload{Date: date}
	if _, err := s.queue.EnqueueUnique(jobs.TaskDailyRollup, payload, "rollup:"+date); err != nil {
		log.Printf("[scheduler] enqueue rollup for %s: %v", date, err)
		return
	}
	log.Printf("[scheduler] daily rollup for %s queued", date)
}

// analysisTaskID derives a stable ID from the session's identity so a sweep
// and a shutdown flush can never enqueue the same finalization twice.
func analysisTaskID(fin *buffer.Finalized) string {
	h := xxhash.Sum64String(fmt.Sprintf("%s|%s|%d", fin.SessionKey, fin.UserID, fin.StartedAt.UnixNano()))
	return fmt.Sprintf("analyze:%016x", h)
}
