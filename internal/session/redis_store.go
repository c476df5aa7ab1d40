package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/hugh/adopt-a-pet/pkg/crypto"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "adopt:session:"

// RedisStore keeps session values in Redis, encrypted with age. The cookie
// carries only the signed session id.
type RedisStore struct {
	client     *redis.Client
	codecs     []securecookie.Codec
	encryptor  *crypto.Encryptor
	serializer securecookie.GobEncoder
	Options    *sessions.Options
}

var (
	_ sessions.Store = (*RedisStore)(nil)
	_ Destroyer      = (*RedisStore)(nil)
)

func NewRedisStore(client *redis.Client, enc *crypto.Encryptor, opts *sessions.Options, keyPairs ...[]byte) *RedisStore {
	codecs := securecookie.CodecsFromPairs(keyPairs...)
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(opts.MaxAge)
		}
	}

	return &RedisStore{
		client:    client,
		codecs:    codecs,
		encryptor: enc,
		Options:   opts,
	}
}

func (s *RedisStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

func (s *RedisStore) New(r *http.Request, name string) (*sessions.Session, error) {
	sess := sessions.NewSession(s, name)
	opts := *s.Options
	sess.Options = &opts
	sess.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return sess, nil
	}

	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.codecs...); err != nil {
		return sess, err
	}

	found, err := s.load(r.Context(), id, sess)
	if err != nil {
		return sess, err
	}
	if found {
		sess.ID = id
		sess.IsNew = false
	}
	return sess, nil
}

// Save writes the session to Redis and sets the id cookie. A negative MaxAge
// deletes both.
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, sess *sessions.Session) error {
	if sess.Options.MaxAge < 0 {
		if sess.ID != "" {
			if err := s.Destroy(r.Context(), sess.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(sess.Name(), "", sess.Options))
		return nil
	}

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}

	if err := s.store(r.Context(), sess); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(sess.Name(), sess.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("encoding session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(sess.Name(), encoded, sess.Options))
	return nil
}

// Destroy removes the stored values for id.
func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) load(ctx context.Context, id string, sess *sessions.Session) (bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading session: %w", err)
	}

	plain, err := s.encryptor.Decrypt(data)
	if err != nil {
		return false, fmt.Errorf("decrypting session: %w", err)
	}
	if err := s.serializer.Deserialize(plain, &sess.Values); err != nil {
		return false, fmt.Errorf("decoding session: %w", err)
	}
	return true, nil
}

func (s *RedisStore) store(ctx context.Context, sess *sessions.Session) error {
	plain, err := s.serializer.Serialize(sess.Values)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	data, err := s.encryptor.Encrypt(plain)
	if err != nil {
		return fmt.Errorf("encrypting session: %w", err)
	}

	ttl := time.Duration(sess.Options.MaxAge) * time.Second
	if err := s.client.Set(ctx, keyPrefix+sess.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}
