package gateway_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/luma/aurora/gateway"
	"github.com/luma/aurora/protocol"
)

var _ = Describe("Heartbeat", func() {
	var (
		fake    *fakeTransport
		rec     *recorder
		metrics *gateway.Metrics
		session *gateway.Session
	)

	BeforeEach(func() {
		fake = newFakeTransport()
		rec = &recorder{}
		metrics = gateway.NewMetrics()

		var err error
		session, err = gateway.New(gateway.Options{
			Transport:        fake,
			Intents:          protocol.IntentGuilds,
			Handlers:         rec.handlers(),
			StrictInvariants: true,
			Metrics:          metrics,
			Log:              zap.NewNop(),
		})
		Expect(err).To(Succeed())

		Expect(session.Connect(context.Background(), "secret", "gateway.test", "443")).To(Succeed())
	})

	AfterEach(func() {
		Expect(session.Close()).To(Succeed())
	})

	heartbeats := func() int {
		return fake.SentCount(protocol.OpHeartbeat)()
	}

	It("sends the first heartbeat one interval after Hello", func() {
		interval := 100 * time.Millisecond

		helloAt := time.Now()
		Expect(fake.Receive(hello(100))).To(BeTrue())

		Eventually(fake.SentCount(protocol.OpHeartbeat), time.Second, 5*time.Millisecond).Should(Equal(1))

		sent := fake.sentWithTimes(protocol.OpHeartbeat)[0]
		Expect(sent.at.Sub(helloAt)).To(BeNumerically(">=", interval))
		Expect(sent.at.Sub(helloAt)).To(BeNumerically("<", interval+100*time.Millisecond))

		// No sequence has been seen yet
		Expect(sent.frame.Get("d").Type).To(Equal(gjson.Null))
	})

	It("keeps heartbeating while every heartbeat is acknowledged", func() {
		Expect(fake.Receive(hello(100))).To(BeTrue())
		Expect(fake.Receive(readyFrame)).To(BeTrue())
		Expect(fake.Receive(dispatch(7, "GUILD_CREATE"))).To(BeTrue())
		Eventually(session.Sequence).Should(Equal(int64(7)))

		for i := 1; i <= 3; i++ {
			Eventually(fake.SentCount(protocol.OpHeartbeat), time.Second, 5*time.Millisecond).Should(Equal(i))
			Expect(fake.Receive(ackFrame)).To(BeTrue())
		}

		for _, beat := range fake.Sent(protocol.OpHeartbeat) {
			Expect(beat.Get("d").Int()).To(Equal(int64(7)))
		}

		Expect(fake.Closes()).To(BeEmpty())
		Expect(session.State()).To(Equal(gateway.Connected))
		Expect(testutil.ToFloat64(metrics.FramesSent.WithLabelValues("Heartbeat"))).To(Equal(float64(3)))
	})

	It("closes a zombie connection and resumes", func() {
		Expect(fake.Receive(hello(100))).To(BeTrue())
		Expect(fake.Receive(readyFrame)).To(BeTrue())
		Eventually(session.State).Should(Equal(gateway.Connected))

		Eventually(fake.Closes, time.Second).Should(Equal([]int{protocol.CloseZombie}))

		// Only the unacknowledged heartbeat was ever sent
		Expect(fake.SentCount(protocol.OpHeartbeat)()).To(Equal(1))
		Expect(rec.States()).To(ContainElement(gateway.Resuming))
		Expect(testutil.ToFloat64(metrics.ZombieConnections)).To(Equal(float64(1)))

		Eventually(fake.SentCount(protocol.OpResume)).Should(Equal(1))
		Expect(fake.Sent(protocol.OpResume)[0].Get("d.session_id").String()).To(Equal("abc123"))
		Expect(session.State()).To(Equal(gateway.Identifying))
	})

	It("answers a heartbeat request right away, once", func() {
		Expect(fake.Receive(hello(10000))).To(BeTrue())
		Expect(fake.Receive(readyFrame)).To(BeTrue())
		Eventually(session.State).Should(Equal(gateway.Connected))

		Expect(fake.Receive(`{"op":1,"d":null}`)).To(BeTrue())
		Eventually(heartbeats).Should(Equal(1))
		Expect(fake.Sent(protocol.OpHeartbeat)[0].Get("d").Int()).To(Equal(int64(1)))

		// Still awaiting the ack of the first one
		Expect(fake.Receive(`{"op":1,"d":null}`)).To(BeTrue())
		Consistently(heartbeats, 100*time.Millisecond).Should(Equal(1))

		Expect(fake.Receive(ackFrame)).To(BeTrue())
		Expect(fake.Receive(`{"op":1,"d":null}`)).To(BeTrue())
		Eventually(heartbeats).Should(Equal(2))
	})

	It("stops heartbeating after Disconnect", func() {
		Expect(fake.Receive(hello(100))).To(BeTrue())
		Eventually(fake.SentCount(protocol.OpIdentify)).Should(Equal(1))

		Expect(session.Disconnect(protocol.CloseNormal)).To(Succeed())

		Consistently(fake.SentCount(protocol.OpHeartbeat), 200*time.Millisecond).Should(BeZero())
	})
})
