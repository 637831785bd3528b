package strand_test

import (
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/aurora/internal/strand"
)

var _ = Describe("Strand", func() {
	It("runs posted closures in order", func() {
		s := strand.New()
		defer s.Stop()

		var order []int
		for i := 0; i < 100; i++ {
			i := i
			Expect(s.Post(func() { order = append(order, i) })).To(BeTrue())
		}

		Expect(s.Do(func() {})).To(Succeed())
		Expect(order).To(HaveLen(100))
		for i, v := range order {
			Expect(v).To(Equal(i))
		}
	})

	It("never runs two closures at once", func() {
		s := strand.New()
		defer s.Stop()

		var (
			running int32
			overlap int32
			wg      sync.WaitGroup
		)

		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					s.Post(func() {
						if atomic.AddInt32(&running, 1) > 1 {
							atomic.StoreInt32(&overlap, 1)
						}
						atomic.AddInt32(&running, -1)
					})
				}
			}()
		}

		wg.Wait()
		Expect(s.Do(func() {})).To(Succeed())
		Expect(atomic.LoadInt32(&overlap)).To(BeZero())
	})

	It("drains queued work on Stop and rejects new work", func() {
		s := strand.New()

		ran := int32(0)
		for i := 0; i < 10; i++ {
			s.Post(func() { atomic.AddInt32(&ran, 1) })
		}

		s.Stop()
		Expect(atomic.LoadInt32(&ran)).To(Equal(int32(10)))
		Expect(s.Post(func() {})).To(BeFalse())
		Expect(s.Do(func() {})).To(MatchError(strand.ErrStopped))
		Eventually(s.Done()).Should(BeClosed())

		Expect(func() { s.Stop() }).NotTo(Panic())
	})
})
