package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/pawmate/pawmate/internal/app/domain/chat"
	"github.com/pawmate/pawmate/pkg/logger"
)

const channelPrefix = "chat:"

// RedisBroker shares rooms between API instances through Redis pub/sub. All
// rooms travel over chat:<room> channels read by one pattern subscription.
type RedisBroker struct {
	client *redis.Client
	pubsub *redis.PubSub
	local  *LocalBroker
	log    *logger.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisBroker connects to url (redis://...) and starts listening.
func NewRedisBroker(ctx context.Context, url string, log *logger.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedisBroker(ctx, client, log)
}

func newRedisBroker(ctx context.Context, client *redis.Client, log *logger.Logger) (*RedisBroker, error) {
	if log == nil {
		log = logger.NewDefault("chat-redis")
	}
	pubsub := client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		client.Close()
		return nil, fmt.Errorf("subscribe %s*: %w", channelPrefix, err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	b := &RedisBroker{client: client, pubsub: pubsub, local: NewLocalBroker(), log: log, cancel: cancel}
	b.wg.Add(1)
	go b.listen(listenCtx)
	return b, nil
}

func (b *RedisBroker) listen(ctx context.Context) {
	defer b.wg.Done()
	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg chat.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.log.WithError(err).WithField("channel", m.Channel).Warn("drop malformed chat payload")
				continue
			}
			msg.RoomID = strings.TrimPrefix(m.Channel, channelPrefix)
			b.local.dispatch(msg)
		}
	}
}

func (b *RedisBroker) Publish(ctx context.Context, msg chat.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode chat message: %w", err)
	}
	if err := b.client.Publish(ctx, channelPrefix+msg.RoomID, payload).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(room string, h Handler) (func(), error) {
	return b.local.Subscribe(room, h)
}

func (b *RedisBroker) Close() error {
	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()
	if cerr := b.client.Close(); err == nil {
		err = cerr
	}
	return err
}
