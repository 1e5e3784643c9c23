package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"namibialove.app/messaging/core/config"
	"namibialove.app/messaging/internal/cache"
	"namibialove.app/messaging/internal/model"
	"namibialove.app/messaging/internal/service"
)

var _ = Describe("ConversationService", func() {
	var (
		ctx      context.Context
		msgStore *mockMessageStore
		inbox    *mockConversationCache
		svc      service.ConversationService
		t0       time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		msgStore = &mockMessageStore{}
		inbox = &mockConversationCache{}
		svc = service.NewConversationService(msgStore, inbox)
		t0 = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	})

	It("returns one entry per counterpart with the latest message", func() {
		msgStore.latestPerCounterpartFn = func(_ context.Context, userID int64) ([]model.Message, error) {
			Expect(userID).To(Equal(int64(1)))
			return []model.Message{
				{ID: 10, SenderID: 1, ReceiverID: 2, Content: "A to B", CreatedAt: t0},
				{ID: 11, SenderID: 2, ReceiverID: 1, Content: "B to A", CreatedAt: t0.Add(time.Minute)},
				{ID: 12, SenderID: 3, ReceiverID: 1, Content: "C to A", CreatedAt: t0.Add(30 * time.Second)},
			}, nil
		}
		msgStore.unreadBySenderFn = func(context.Context, int64) (map[int64]int64, error) {
			return map[int64]int64{2: 1, 3: 4}, nil
		}

		conversations, err := svc.List(ctx, 1)

		Expect(err).NotTo(HaveOccurred())
		Expect(conversations).To(HaveLen(2))

		Expect(conversations[0].CounterpartID).To(Equal(int64(2)))
		Expect(conversations[0].LastMessage.ID).To(Equal(int64(11)))
		Expect(conversations[0].UnreadCount).To(Equal(int64(1)))

		Expect(conversations[1].CounterpartID).To(Equal(int64(3)))
		Expect(conversations[1].LastMessage.ID).To(Equal(int64(12)))
		Expect(conversations[1].UnreadCount).To(Equal(int64(4)))
	})

	It("orders newest first and breaks timestamp ties by the higher id", func() {
		msgStore.latestPerCounterpartFn = func(context.Context, int64) ([]model.Message, error) {
			return []model.Message{
				{ID: 20, SenderID: 1, ReceiverID: 2, CreatedAt: t0},
				{ID: 22, SenderID: 3, ReceiverID: 1, CreatedAt: t0},
				{ID: 21, SenderID: 1, ReceiverID: 4, CreatedAt: t0},
				{ID: 5, SenderID: 5, ReceiverID: 1, CreatedAt: t0.Add(time.Second)},
			}, nil
		}

		conversations, err := svc.List(ctx, 1)

		Expect(err).NotTo(HaveOccurred())
		ids := make([]int64, 0, len(conversations))
		for _, c := range conversations {
			ids = append(ids, c.CounterpartID)
		}
		Expect(ids).To(Equal([]int64{5, 3, 4, 2}))
	})

	It("reports zero unread for counterparts without unread messages", func() {
		msgStore.latestPerCounterpartFn = func(context.Context, int64) ([]model.Message, error) {
			return []model.Message{{ID: 1, SenderID: 1, ReceiverID: 2, CreatedAt: t0}}, nil
		}

		conversations, err := svc.List(ctx, 1)

		Expect(err).NotTo(HaveOccurred())
		Expect(conversations[0].UnreadCount).To(BeZero())
	})

	It("returns an empty list for a user without messages", func() {
		conversations, err := svc.List(ctx, 1)

		Expect(err).NotTo(HaveOccurred())
		Expect(conversations).To(BeEmpty())
	})

	Describe("caching", func() {
		It("stores the computed view", func() {
			msgStore.latestPerCounterpartFn = func(context.Context, int64) ([]model.Message, error) {
				return []model.Message{{ID: 1, SenderID: 1, ReceiverID: 2, CreatedAt: t0}}, nil
			}

			conversations, err := svc.List(ctx, 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(inbox.stored[1]).To(Equal(conversations))
		})

		It("serves a cached view without touching the store", func() {
			cached := []model.Conversation{{CounterpartID: 9, LastMessage: model.Message{ID: 99}}}
			inbox.getFn = func(context.Context, int64) ([]model.Conversation, cache.Generation, error) {
				return cached, 0, nil
			}

			conversations, err := svc.List(ctx, 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(conversations).To(Equal(cached))
			Expect(msgStore.latestCalls).To(BeZero())
		})

		It("falls back to the store when the cache errors and does not write", func() {
			inbox.getFn = func(context.Context, int64) ([]model.Conversation, cache.Generation, error) {
				return nil, 0, errors.New("redis down")
			}
			inbox.setFn = func(context.Context, int64, cache.Generation, []model.Conversation) error {
				Fail("a view read without a generation must not be cached")
				return nil
			}

			_, err := svc.List(ctx, 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(msgStore.latestCalls).To(Equal(1))
		})

		It("ignores write failures", func() {
			inbox.setFn = func(context.Context, int64, cache.Generation, []model.Conversation) error {
				return errors.New("redis down")
			}

			_, err := svc.List(ctx, 1)

			Expect(err).NotTo(HaveOccurred())
		})

		It("works without a cache", func() {
			svc = service.NewConversationService(msgStore, nil)

			_, err := svc.List(ctx, 1)

			Expect(err).NotTo(HaveOccurred())
		})

		It("does not cache a view that a concurrent send made outdated", func() {
			messages := service.NewMessageService(msgStore, &mockTxRunner{messages: msgStore}, &mockNotifier{online: map[int64]bool{}}, inbox, config.MessagesConfig{
				MaxContentLength: 100,
			})
			involving := func(userID int64) []model.Message {
				var out []model.Message
				for _, m := range msgStore.created {
					if m.SenderID == userID || m.ReceiverID == userID {
						out = append(out, m)
					}
				}
				return out
			}

			sent := false
			msgStore.latestPerCounterpartFn = func(ctx context.Context, userID int64) ([]model.Message, error) {
				snapshot := involving(userID)
				if !sent {
					sent = true
					_, err := messages.Send(ctx, 6, 3, "Hi")
					Expect(err).NotTo(HaveOccurred())
				}
				return snapshot, nil
			}

			first, err := svc.List(ctx, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(BeEmpty())
			Expect(inbox.staleWrites).To(Equal(1))

			second, err := svc.List(ctx, 3)

			Expect(err).NotTo(HaveOccurred())
			Expect(msgStore.created).To(HaveLen(1))
			Expect(second).To(HaveLen(1))
			Expect(second[0].CounterpartID).To(Equal(int64(6)))
		})

		It("recomputes after a read changes the unread counts", func() {
			msgStore.latestPerCounterpartFn = func(context.Context, int64) ([]model.Message, error) {
				return []model.Message{{ID: 1, SenderID: 2, ReceiverID: 1, CreatedAt: t0}}, nil
			}
			unread := map[int64]int64{2: 1}
			msgStore.unreadBySenderFn = func(context.Context, int64) (map[int64]int64, error) {
				return unread, nil
			}
			msgStore.markReadFn = func(context.Context, int64, int64) (int64, error) {
				unread = map[int64]int64{}
				return 1, nil
			}
			messages := service.NewMessageService(msgStore, &mockTxRunner{messages: msgStore}, &mockNotifier{online: map[int64]bool{}}, inbox, config.MessagesConfig{})

			before, err := svc.List(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(before[0].UnreadCount).To(Equal(int64(1)))

			_, err = messages.MarkRead(ctx, 2, 1)
			Expect(err).NotTo(HaveOccurred())

			after, err := svc.List(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(after[0].UnreadCount).To(BeZero())
		})
	})

	It("wraps store failures", func() {
		msgStore.latestPerCounterpartFn = func(context.Context, int64) ([]model.Message, error) {
			return nil, errors.New("boom")
		}

		_, err := svc.List(ctx, 1)

		Expect(err).To(MatchError(service.ErrPersistence))
	})

	It("rejects an invalid user id", func() {
		_, err := svc.List(ctx, 0)

		Expect(err).To(MatchError(service.ErrValidation))
	})
})
