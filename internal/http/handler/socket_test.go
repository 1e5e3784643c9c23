package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"namibialove.app/messaging/core/config"
	"namibialove.app/messaging/internal/http/handler"
	"namibialove.app/messaging/internal/http/middleware"
	httprouter "namibialove.app/messaging/internal/http/router"
	"namibialove.app/messaging/internal/realtime"
	"namibialove.app/messaging/internal/service"
)

var _ = Describe("Realtime messaging over the socket and REST", func() {
	var (
		server   *httptest.Server
		registry *realtime.Registry
		messages *memoryStore
		wsURL    string
	)

	dial := func() *websocket.Conn {
		client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = client.Close() })
		return client
	}

	send := func(client *websocket.Conn, frame string) {
		Expect(client.WriteMessage(websocket.TextMessage, []byte(frame))).To(Succeed())
	}

	receive := func(client *websocket.Conn) map[string]any {
		Expect(client.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		_, frame, err := client.ReadMessage()
		Expect(err).NotTo(HaveOccurred())
		var e map[string]any
		Expect(json.Unmarshal(frame, &e)).To(Succeed())
		return e
	}

	authenticate := func(userID string) *websocket.Conn {
		client := dial()
		send(client, `{"type":"authenticate","userId":`+userID+`}`)
		Expect(receive(client)["type"]).To(Equal("authenticated"))
		return client
	}

	rest := func(method, path, body, userID string) *http.Response {
		req, err := http.NewRequest(method, server.URL+path, strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", userID)
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	BeforeEach(func() {
		registry = realtime.NewRegistry()
		messages = &memoryStore{}

		messageService := service.NewMessageService(messages, messages, registry, nil, config.MessagesConfig{
			MaxContentLength: 5000,
			DefaultPageSize:  50,
			MaxPageSize:      200,
		})
		conversationService := service.NewConversationService(messages, nil)

		router := gin.New()
		router.Use(middleware.Recovery())
		router.GET("/ws", handler.NewSocketHandler(registry, messageService, config.RealtimeConfig{
			WriteWait:  time.Second,
			PingPeriod: time.Minute,
			SendBuffer: 16,
			ReadLimit:  4096,
		}).Serve)
		v1 := router.Group("/api/v1")
		v1.Use(middleware.RequireIdentity("X-User-ID"))
		httprouter.MessageRouter(v1.Group("/messages"), handler.NewMessageHandler(messageService, conversationService))

		server = httptest.NewServer(router)
		DeferCleanup(server.Close)
		DeferCleanup(registry.Close)
		wsURL = "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	})

	It("delivers a message live to an online receiver and acknowledges the sender", func() {
		alice := authenticate("3")
		bob := authenticate("6")

		send(alice, `{"type":"message","receiverId":6,"content":"Hi"}`)

		ack := receive(alice)
		Expect(ack["type"]).To(Equal("message_sent"))
		delivered := receive(bob)
		Expect(delivered["type"]).To(Equal("message"))
		Expect(delivered["message"]).To(Equal(ack["message"]))
		Expect(messages.messages).To(HaveLen(1))
	})

	It("stores a message for an offline receiver and marks it read when they open the chat", func() {
		alice := authenticate("3")

		send(alice, `{"type":"message","receiverId":6,"content":"Hi"}`)
		ack := receive(alice)
		Expect(ack["type"]).To(Equal("message_sent"))
		Expect(ack["message"].(map[string]any)["read"]).To(BeFalse())

		resp := rest(http.MethodGet, "/api/v1/messages/unread-count", "", "6")
		var count map[string]int64
		Expect(json.NewDecoder(resp.Body).Decode(&count)).To(Succeed())
		Expect(count["count"]).To(Equal(int64(1)))

		resp = rest(http.MethodGet, "/api/v1/messages/3", "", "6")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		Expect(receive(alice)).To(Equal(map[string]any{"type": "messages_read", "readBy": float64(6)}))

		resp = rest(http.MethodGet, "/api/v1/messages/unread-count", "", "6")
		Expect(json.NewDecoder(resp.Body).Decode(&count)).To(Succeed())
		Expect(count["count"]).To(BeZero())
	})

	It("accepts the same message over REST and delivers it live", func() {
		bob := authenticate("6")

		resp := rest(http.MethodPost, "/api/v1/messages", `{"receiverId":6,"content":"Hi from REST"}`, "3")
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		delivered := receive(bob)
		Expect(delivered["type"]).To(Equal("message"))
		Expect(delivered["message"].(map[string]any)["content"]).To(Equal("Hi from REST"))
	})

	It("relays typing and read receipts", func() {
		alice := authenticate("3")
		bob := authenticate("6")

		send(alice, `{"type":"typing","receiverId":6}`)
		Expect(receive(bob)).To(Equal(map[string]any{"type": "typing", "senderId": float64(3), "isTyping": true}))

		send(bob, `{"type":"read_messages","senderId":3}`)
		Expect(receive(alice)).To(Equal(map[string]any{"type": "messages_read", "readBy": float64(6)}))
	})

	It("routes to the newest channel after a reconnect and keeps it bound when the old one closes", func() {
		first := authenticate("3")
		second := authenticate("6")
		reconnected := authenticate("6")

		send(first, `{"type":"message","receiverId":6,"content":"still there?"}`)
		Expect(receive(first)["type"]).To(Equal("message_sent"))
		Expect(receive(reconnected)["type"]).To(Equal("message"))

		Expect(second.Close()).To(Succeed())
		Consistently(func() bool { return registry.IsOnline(6) }, 200*time.Millisecond).Should(BeTrue())

		send(first, `{"type":"typing","receiverId":6}`)
		Expect(receive(reconnected)["type"]).To(Equal("typing"))
	})

	It("answers malformed frames with an error and keeps the channel open", func() {
		client := dial()

		send(client, `not json`)
		Expect(receive(client)).To(Equal(map[string]any{"type": "error", "message": "malformed event"}))

		send(client, `{"type":"message","receiverId":6,"content":"Hi"}`)
		Expect(receive(client)).To(Equal(map[string]any{"type": "error", "message": "not authenticated"}))

		send(client, `{"type":"authenticate","userId":3}`)
		Expect(receive(client)["type"]).To(Equal("authenticated"))
	})

	DescribeTable("applies the same send rules on the socket and over REST",
		func(fields string) {
			alice := authenticate("3")

			send(alice, `{"type":"message",`+fields+`}`)
			socketReply := receive(alice)

			resp := rest(http.MethodPost, "/api/v1/messages", `{`+fields+`}`, "3")
			var restReply map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&restReply)).To(Succeed())

			if socketReply["type"] == "message_sent" {
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(restReply["receiverId"]).To(Equal(socketReply["message"].(map[string]any)["receiverId"]))
				return
			}
			Expect(socketReply["type"]).To(Equal("error"))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(restReply["error"]).To(Equal(socketReply["message"]))
		},
		Entry("string receiver id", `"receiverId":"6","content":"Hi"`),
		Entry("zero receiver id", `"receiverId":0,"content":"Hi"`),
		Entry("negative receiver id", `"receiverId":-6,"content":"Hi"`),
		Entry("missing receiver id", `"content":"Hi"`),
		Entry("missing content", `"receiverId":6`),
		Entry("blank content", `"receiverId":6,"content":"   "`),
		Entry("non numeric receiver id", `"receiverId":"six","content":"Hi"`),
	)

	It("unbinds the user when the channel closes", func() {
		client := authenticate("3")
		Expect(registry.IsOnline(3)).To(BeTrue())

		Expect(client.Close()).To(Succeed())

		Eventually(func() bool { return registry.IsOnline(3) }, 2*time.Second).Should(BeFalse())
	})
})
