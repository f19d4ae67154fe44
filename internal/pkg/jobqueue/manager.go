package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// SubscribedRestaurantLister lists restaurants whose subscription has a
// usage-billed item.
type SubscribedRestaurantLister interface {
	ListUsageBilledRestaurantIDs(ctx context.Context) ([]string, error)
}

// Manager runs the job queue plus a periodic usage resync. Usage reports
// are best effort, so the resync re-enqueues a recount for every
// usage-billed restaurant to repair reports lost while the provider was down.
type Manager struct {
	queue          *Queue
	dispatcher     *Dispatcher
	lister         SubscribedRestaurantLister
	resyncInterval time.Duration
	resyncTicker   *time.Ticker
	stopCh         chan struct{}
	wg             sync.WaitGroup
	mu             sync.Mutex
	running        bool
}

// NewManager creates a manager. A nil lister or non-positive interval
// disables the resync worker.
func NewManager(queue *Queue, lister SubscribedRestaurantLister, resyncInterval time.Duration) *Manager {
	return &Manager{
		queue:          queue,
		dispatcher:     NewDispatcher(queue),
		lister:         lister,
		resyncInterval: resyncInterval,
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Dispatcher returns a dispatcher bound to the managed queue.
func (m *Manager) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	if m.lister != nil && m.resyncInterval > 0 {
		m.resyncTicker = time.NewTicker(m.resyncInterval)
		m.wg.Add(1)
		go m.resyncWorker(m.stopCh, m.resyncTicker.C)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.resyncTicker != nil {
		m.resyncTicker.Stop()
	}

	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

func (m *Manager) resyncWorker(stopCh <-chan struct{}, tick <-chan time.Time) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started usage resync worker (interval: %s)", m.resyncInterval)

	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Usage resync worker stopping")
			return
		case <-tick:
			if n, err := m.ResyncUsageOnce(context.Background()); err != nil {
				log.Errorf("[JobQueue Manager] Usage resync error: %v", err)
			} else if n > 0 {
				log.Infof("[JobQueue Manager] Queued %d product recounts", n)
			}
		}
	}
}

// ResyncUsageOnce enqueues one recount per usage-billed restaurant.
func (m *Manager) ResyncUsageOnce(ctx context.Context) (int, error) {
	if m.lister == nil {
		return 0, nil
	}
	ids, err := m.lister.ListUsageBilledRestaurantIDs(ctx)
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, id := range ids {
		if err := m.dispatcher.ScheduleProductRecount(ctx, id); err != nil {
			log.Warnf("[JobQueue Manager] %v", err)
			continue
		}
		queued++
	}
	return queued, nil
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
