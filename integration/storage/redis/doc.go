// Package redis provides a storage.Backend on Redis, with client
// initialization and health checking.
//
// Each object is a hash with two fields: data holds the stored bytes and
// modified the time of the last write in Unix nanoseconds. Keys are
// namespaced with Config.KeyPrefix ("acmekit:" by default), so several
// deployments can share one database.
//
// # Usage
//
//	cfg := redis.Config{
//		ConnectionURL: "redis://localhost:6379/0",
//		KeyPrefix:     "acmekit:",
//		RetryAttempts: 3,
//		RetryInterval: 5 * time.Second,
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	store := storage.New(redis.NewBackend(client, cfg))
//
// Connect accepts redis:// and rediss:// (TLS) URLs and pings the server
// until it answers or the attempts run out, doubling the interval between
// attempts.
//
// # Listing
//
// List walks the keyspace with SCAN MATCH, escaping glob metacharacters of
// the prefix. Keys are deduplicated since SCAN may return an element more
// than once while the keyspace changes.
//
// # Error Handling
//
//   - ErrFailedToParseRedisConnString: the connection URL is malformed
//   - ErrRedisNotReady: Redis did not answer within the attempts or timeout
//   - ErrEmptyConnectionURL: no connection URL was provided
//   - ErrHealthcheckFailed: the health check ping failed
package redis
