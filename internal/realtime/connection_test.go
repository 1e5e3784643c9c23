package realtime_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"namibialove.app/messaging/core/config"
	"namibialove.app/messaging/internal/realtime"
)

var _ = Describe("Connection", func() {
	var (
		cfg      config.RealtimeConfig
		server   *httptest.Server
		accepted chan *realtime.Connection
		upgrader websocket.Upgrader
	)

	dial := func() *websocket.Conn {
		url := "ws" + strings.TrimPrefix(server.URL, "http")
		client, _, err := websocket.DefaultDialer.Dial(url, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = client.Close() })
		return client
	}

	readFrame := func(client *websocket.Conn) string {
		Expect(client.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		_, frame, err := client.ReadMessage()
		Expect(err).NotTo(HaveOccurred())
		return string(frame)
	}

	BeforeEach(func() {
		cfg = config.RealtimeConfig{
			WriteWait:  time.Second,
			PingPeriod: time.Minute,
			SendBuffer: 8,
			ReadLimit:  1024,
		}
		accepted = make(chan *realtime.Connection, 1)
		upgrader = websocket.Upgrader{}
	})

	JustBeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ws, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			conn := realtime.NewConnection(ws, cfg)
			conn.Start()
			accepted <- conn

			// Echo every frame back through the send queue.
			_ = conn.ReadLoop(context.Background(), func(_ context.Context, frame []byte) {
				_ = conn.Send(frame)
			})
			conn.Close()
		}))
		DeferCleanup(server.Close)
	})

	It("has a unique id", func() {
		dial()
		first := <-accepted
		dial()
		second := <-accepted

		Expect(first.ID()).NotTo(BeEmpty())
		Expect(first.ID()).NotTo(Equal(second.ID()))
	})

	It("delivers inbound frames in order and writes queued frames", func() {
		client := dial()
		<-accepted

		for _, frame := range []string{"one", "two", "three"} {
			Expect(client.WriteMessage(websocket.TextMessage, []byte(frame))).To(Succeed())
		}

		Expect(readFrame(client)).To(Equal("one"))
		Expect(readFrame(client)).To(Equal("two"))
		Expect(readFrame(client)).To(Equal("three"))
	})

	It("sends a close frame and refuses further frames once closed", func() {
		client := dial()
		conn := <-accepted

		conn.Close()

		Expect(client.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		_, _, err := client.ReadMessage()
		Expect(websocket.IsCloseError(err, websocket.CloseGoingAway)).To(BeTrue())
		Expect(conn.Send([]byte("late"))).To(MatchError(realtime.ErrConnectionClosed))
		Eventually(conn.Done()).Should(BeClosed())
	})

	It("stops reading when the client disconnects", func() {
		client := dial()
		conn := <-accepted

		Expect(client.Close()).To(Succeed())

		Eventually(conn.Done(), 2*time.Second).Should(BeClosed())
	})
})

var _ = Describe("Connection backpressure", func() {
	It("closes a connection whose send buffer is full", func() {
		accepted := make(chan *realtime.Connection, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ws, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
			if err != nil {
				return
			}
			// The write loop is never started, so nothing drains the queue.
			accepted <- realtime.NewConnection(ws, config.RealtimeConfig{SendBuffer: 1, WriteWait: time.Second})
		}))
		DeferCleanup(server.Close)

		client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = client.Close() })
		conn := <-accepted

		Expect(conn.Send([]byte("first"))).To(Succeed())
		Expect(conn.Send([]byte("second"))).To(MatchError(realtime.ErrSendBufferFull))
		Expect(conn.Done()).To(BeClosed())

		Expect(client.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		_, _, err = client.ReadMessage()
		Expect(websocket.IsCloseError(err, websocket.CloseTryAgainLater)).To(BeTrue())
	})
})
