package evqueue_test

import (
	"bytes"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/s-u/osrv/internal/evqueue"
)

var _ = Describe("Queue", func() {
	var q *evqueue.Queue

	BeforeEach(func() {
		q = evqueue.New()
	})

	Describe("push and pop", func() {
		It("pops in FIFO order for tail pushes", func() {
			e1 := evqueue.NewEntry([]byte("a"), nil)
			e2 := evqueue.NewEntry([]byte("b"), nil)
			q.Push(e1, false)
			q.Push(e2, false)

			Expect(q.Pop().Data).To(Equal([]byte("a")))
			Expect(q.Pop().Data).To(Equal([]byte("b")))
			Expect(q.Pop()).To(BeNil())
		})

		It("inserts at the head when front is requested", func() {
			e1 := evqueue.NewEntry([]byte("a"), nil)
			e2 := evqueue.NewEntry([]byte("b"), nil)
			q.Push(e1, false)
			q.Push(e2, true)

			Expect(q.Pop().Data).To(Equal([]byte("b")))
			Expect(q.Pop().Data).To(Equal([]byte("a")))
		})

		It("allows an entry popped from one queue to be pushed to another", func() {
			other := evqueue.New()
			e := evqueue.NewEntry([]byte("x"), nil)
			q.Push(e, false)
			popped := q.Pop()
			other.Push(popped, false)
			Expect(other.Pop().Data).To(Equal([]byte("x")))
		})
	})

	Describe("PopWait", func() {
		It("wakes up shortly after a concurrent push", func() {
			done := make(chan *evqueue.Entry, 1)
			go func() {
				done <- q.PopWait(2 * time.Second)
			}()

			time.Sleep(20 * time.Millisecond)
			q.Push(evqueue.NewEntry([]byte("woken"), nil), false)

			Eventually(done, time.Second).Should(Receive(WithTransform(
				func(e *evqueue.Entry) []byte { return e.Data },
				Equal([]byte("woken")),
			)))
		})

		It("returns nil after the timeout elapses on an empty queue", func() {
			start := time.Now()
			e := q.PopWait(100 * time.Millisecond)
			Expect(e).To(BeNil())
			Expect(time.Since(start)).To(BeNumerically(">=", 90*time.Millisecond))
		})
	})

	Describe("notify fd", func() {
		It("writes exactly one byte to the registered writer per push", func() {
			var buf bytes.Buffer
			var mu sync.Mutex
			q.SetNotifyFD(lockedWriter{&mu, &buf})

			const n = 1000
			for i := 0; i < n; i++ {
				q.Push(evqueue.NewEntry(nil, nil), false)
			}

			mu.Lock()
			defer mu.Unlock()
			Expect(buf.Len()).To(Equal(n))
		})
	})
})

type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}
