package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/celestix/gotgproto/storage"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth/qrlogin"
	"github.com/gotd/td/tg"
	"gorm.io/gorm"
)

// sessionFormatVersion is the gotd storage format version gotgproto reads.
const sessionFormatVersion = 1

// ConvertToGotgprotoSession converts gotd session.Data to a gotgproto
// storage.Session row. The payload uses gotd's storage envelope
// {"Version":1,"Data":{...}}.
func ConvertToGotgprotoSession(data *session.Data) (*storage.Session, error) {
	if data == nil {
		return nil, fmt.Errorf("session data is nil")
	}

	envelope := struct {
		Version int
		Data    session.Data
	}{
		Version: sessionFormatVersion,
		Data:    *data,
	}

	dataJSON, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal session data: %w", err)
	}

	return &storage.Session{
		Version: storage.LatestVersion,
		Data:    dataJSON,
	}, nil
}

// SaveSession stores data in db where gotgproto's SqlSession will find it.
func SaveSession(db *gorm.DB, data *session.Data) error {
	sess, err := ConvertToGotgprotoSession(data)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(&storage.Session{}); err != nil {
		return fmt.Errorf("migrate sessions table: %w", err)
	}
	// Version is the primary key, so Save upserts the single row
	return db.Save(sess).Error
}

// QRClientBundle contains all components needed for QR authentication.
type QRClientBundle struct {
	Client     *telegram.Client
	Dispatcher *tg.UpdateDispatcher
	Storage    *session.StorageMemory
}

// QRClientFactory creates a raw client for QR auth.
type QRClientFactory func(apiID int, apiHash string) (*QRClientBundle, error)

// NewQRClient creates a raw td/telegram client suitable for QR authentication.
// Unlike gotgproto's NewClient, this does not attempt interactive CLI auth.
func NewQRClient(apiID int, apiHash string) (*QRClientBundle, error) {
	memStorage := &session.StorageMemory{}
	d := tg.NewUpdateDispatcher()
	dispatcher := &d

	client := telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: memStorage,
		UpdateHandler:  dispatcher,
	})

	return &QRClientBundle{
		Client:     client,
		Dispatcher: dispatcher,
		Storage:    memStorage,
	}, nil
}

// LoginQR runs the QR login flow and returns the authorized session.
// onQRCode is called with every fresh tg://login URL; the flow blocks until
// the code is scanned or ctx is canceled.
func LoginQR(ctx context.Context, factory QRClientFactory, apiID int, apiHash string, onQRCode func(url string)) (*session.Data, error) {
	if factory == nil {
		factory = NewQRClient
	}

	bundle, err := factory(apiID, apiHash)
	if err != nil {
		return nil, fmt.Errorf("create QR client: %w", err)
	}

	var (
		authErr     error
		sessionData *session.Data
	)

	err = bundle.Client.Run(ctx, func(ctx context.Context) error {
		loggedIn := qrlogin.OnLoginToken(bundle.Dispatcher)

		_, authErr = bundle.Client.QR().Auth(ctx, loggedIn, func(_ context.Context, token qrlogin.Token) error {
			onQRCode(token.URL())
			return nil
		})
		if authErr != nil {
			return authErr
		}

		loader := session.Loader{Storage: bundle.Storage}
		sessionData, authErr = loader.Load(ctx)
		return authErr
	})

	if err != nil || authErr != nil {
		if errors.Is(err, context.Canceled) || errors.Is(authErr, context.Canceled) {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("QR auth flow failed: %w", errors.Join(err, authErr))
	}
	if sessionData == nil {
		return nil, fmt.Errorf("session data is nil after successful auth")
	}
	return sessionData, nil
}
