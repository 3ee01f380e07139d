package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/backup"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/client"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/crypto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/fanout"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/localstore"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

// session is everything a signed-in command needs.
type session struct {
	profile   *profile
	api       *client.Client
	store     *localstore.Store
	messenger *client.Messenger
}

func openSession() (*session, error) {
	p, err := loadProfile(home)
	if err != nil {
		return nil, err
	}
	privateKey, err := loadKey(home)
	if err != nil {
		return nil, fmt.Errorf("read device key: %w", err)
	}
	if privateKey == "" {
		return nil, fmt.Errorf("device key missing from %s", home)
	}
	provider, err := crypto.NewProvider(p.Provider)
	if err != nil {
		return nil, err
	}

	store, dbPath, err := localstore.Open(home)
	if err != nil {
		return nil, err
	}
	log.Debugf("local store at %s", dbPath)

	api := client.New(resolveServer(p), client.WithToken(p.AccessToken))
	id := backup.Identity{
		UserID:     p.userID(),
		Username:   p.Username,
		Email:      p.Email,
		DeviceID:   p.deviceID(),
		PrivateKey: privateKey,
	}
	return &session{
		profile:   p,
		api:       api,
		store:     store,
		messenger: client.NewMessenger(api, fanout.NewEncoder(provider, log), store, id, log),
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// conversationFor accepts a conversation id or a peer username. A username
// opens the one-to-one conversation with that user, creating it if needed.
func (s *session) conversationFor(ctx context.Context, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	peer, err := s.api.LookupUser(ctx, arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("look up %q: %w", arg, err)
	}
	peerID, err := uuid.Parse(peer.ID)
	if err != nil {
		return uuid.Nil, err
	}
	conv, err := s.api.CreateConversation(ctx, peerID)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.store.SaveConversation(ctx, conv); err != nil {
		log.Warnf("save conversation %s: %v", conv.ID, err)
	}
	return conv.ID, nil
}

// explain adds a hint to errors a user can act on.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pumpkin_errors.ErrUnauthorized):
		return fmt.Errorf("%w (session expired or device deactivated, run `pumpkin login`)", err)
	case errors.Is(err, pumpkin_errors.ErrDeviceLimitExceeded):
		return fmt.Errorf("%w (deactivate a device with `pumpkin devices deactivate <id>`)", err)
	case errors.Is(err, pumpkin_errors.ErrRateLimited):
		return fmt.Errorf("%w (try again shortly)", err)
	}
	return err
}
