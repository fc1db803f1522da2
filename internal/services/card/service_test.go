package card

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"testing"

	"cardgate/internal/gateway"
	"cardgate/internal/models"
	"cardgate/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, card *models.Card) error {
	return m.Called(ctx, card).Error(0)
}

func (m *MockStore) MarkBilled(ctx context.Context, card *models.Card) error {
	return m.Called(ctx, card).Error(0)
}

func (m *MockStore) Delete(ctx context.Context, card *models.Card) error {
	return m.Called(ctx, card).Error(0)
}

func (m *MockStore) FindOne(ctx context.Context, filter repositories.Filter) (*models.Card, error) {
	args := m.Called(ctx, filter)
	if card := args.Get(0); card != nil {
		return card.(*models.Card), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) FindMany(ctx context.Context, filter repositories.Filter, opts repositories.ListOptions) ([]*models.Card, error) {
	args := m.Called(ctx, filter, opts)
	if cards := args.Get(0); cards != nil {
		return cards.([]*models.Card), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) Count(ctx context.Context, filter repositories.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) envelope(args mock.Arguments) (*gateway.Envelope, error) {
	if env := args.Get(0); env != nil {
		return env.(*gateway.Envelope), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) Tokenize(ctx context.Context, req gateway.TokenizeRequest) (*gateway.Envelope, error) {
	return m.envelope(m.Called(ctx, req))
}

func (m *MockGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.Envelope, error) {
	return m.envelope(m.Called(ctx, req))
}

func (m *MockGateway) ChargeAuthorization(ctx context.Context, req gateway.ChargeRequest) (*gateway.Envelope, error) {
	return m.envelope(m.Called(ctx, req))
}

func (m *MockGateway) DeactivateAuthorization(ctx context.Context, authorizationCode string) (*gateway.Envelope, error) {
	return m.envelope(m.Called(ctx, authorizationCode))
}

func (m *MockGateway) SubmitOTP(ctx context.Context, otp, reference string) (*gateway.Envelope, error) {
	return m.envelope(m.Called(ctx, otp, reference))
}

func (m *MockGateway) SubmitPhone(ctx context.Context, phone, reference string) (*gateway.Envelope, error) {
	return m.envelope(m.Called(ctx, phone, reference))
}

func (m *MockGateway) SubmitPin(ctx context.Context, pin, reference string) (*gateway.Envelope, error) {
	return m.envelope(m.Called(ctx, pin, reference))
}

func (m *MockGateway) CheckStatus(ctx context.Context, reference string) (*gateway.Envelope, error) {
	return m.envelope(m.Called(ctx, reference))
}

func (m *MockGateway) VerifyTransaction(ctx context.Context, reference string) (*gateway.Envelope, error) {
	return m.envelope(m.Called(ctx, reference))
}

func newTestService(store *MockStore, gw *MockGateway, cfg Config) Service {
	return NewService(store, gw, cfg)
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func successEnvelope(reference, authCode string) *gateway.Envelope {
	return &gateway.Envelope{
		Status: true,
		Data: &gateway.ChargeData{
			Status:    "success",
			Reference: reference,
			Authorization: &gateway.Authorization{
				AuthorizationCode: authCode,
			},
		},
	}
}

func TestAddCard(t *testing.T) {
	t.Run("tokenize success persists unbilled card", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		gw.On("Tokenize", mock.Anything, mock.MatchedBy(func(req gateway.TokenizeRequest) bool {
			return req.Card.Number == "4084084084084081" && req.Email == "someone@example.com"
		})).Return(&gateway.Envelope{
			Status: true,
			Data: &gateway.ChargeData{
				AuthorizationCode: "AUTH_X",
				CardType:          "visa",
				Bin:               "408408",
				Last4:             "4081",
				ExpMonth:          "11",
				ExpYear:           "2028",
				Bank:              "044",
				Signature:         "SIG_X",
				Reusable:          true,
				CountryCode:       "NG",
			},
		}, nil)
		store.On("Create", mock.Anything, mock.Anything).Return(nil)

		record, env, err := svc.AddCard(context.Background(), AddCardInput{
			Email:      "someone@example.com",
			Phone:      "09058283022",
			CardNumber: "4084 0840 8408 4081",
			CVV:        "408",
			ExpMonth:   "11",
			ExpYear:    "2028",
		})
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.True(t, env.Status)

		assert.Equal(t, "408408", record.FirstSix)
		assert.Equal(t, "4081", record.LastFour)
		assert.False(t, record.Billed)
		assert.Equal(t, "AUTH_X", record.AuthorizationCode)
		assert.Equal(t, sha1Hex("4084084084084081"), record.HashedCard["value"])
		assert.Equal(t, models.HashFunction, record.HashedCard["function"])
		assert.Equal(t, "09058283022", record.Phone)

		store.AssertExpectations(t)
		gw.AssertExpectations(t)
	})

	t.Run("explicit card id is honored", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		gw.On("Tokenize", mock.Anything, mock.Anything).Return(&gateway.Envelope{
			Status: true,
			Data:   &gateway.ChargeData{AuthorizationCode: "AUTH_Y"},
		}, nil)
		store.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Card) bool {
			return c.CardID == "mycard01"
		})).Return(nil)

		record, _, err := svc.AddCard(context.Background(), AddCardInput{
			Email:      "someone@example.com",
			CardNumber: "5078507850785078",
			CardID:     "mycard01",
		})
		require.NoError(t, err)
		assert.Equal(t, "mycard01", record.CardID)
		store.AssertExpectations(t)
	})

	t.Run("processor decline is returned as envelope", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		gw.On("Tokenize", mock.Anything, mock.Anything).Return(&gateway.Envelope{
			Status:  false,
			Message: "Invalid card number",
		}, nil)

		record, env, err := svc.AddCard(context.Background(), AddCardInput{
			Email:      "someone@example.com",
			CardNumber: "1234",
		})
		require.NoError(t, err)
		assert.Nil(t, record)
		assert.False(t, env.Status)
		assert.Equal(t, "Invalid card number", env.Message)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestDebitCard(t *testing.T) {
	baseCard := func() *models.Card {
		return &models.Card{
			CardID:            "abc12345",
			Email:             "someone@example.com",
			AuthorizationCode: "AUTH_X",
		}
	}

	t.Run("amount converted to minor units on fresh charge", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		gw.On("Charge", mock.Anything, mock.MatchedBy(func(req gateway.ChargeRequest) bool {
			return req.Amount == 500000 && req.AuthorizationCode == "AUTH_X" && req.Pin == "0000"
		})).Return(&gateway.Envelope{
			Status: true,
			Data:   &gateway.ChargeData{Status: "send_otp", Reference: "ref1"},
		}, nil)

		env, err := svc.DebitCard(context.Background(), ByCard(baseCard()), 5000.00, DebitOptions{Pin: "0000"})
		require.NoError(t, err)
		assert.Equal(t, "otp", env.PendingAction())
		gw.AssertExpectations(t)
		gw.AssertNotCalled(t, "ChargeAuthorization", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "MarkBilled", mock.Anything, mock.Anything)
	})

	t.Run("reusable billed card takes saved-token endpoint", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		record := baseCard()
		record.Reusable = true
		record.Billed = true

		gw.On("ChargeAuthorization", mock.Anything, mock.Anything).Return(successEnvelope("ref1", "AUTH_X"), nil)
		store.On("MarkBilled", mock.Anything, record).Return(nil)

		env, err := svc.DebitCard(context.Background(), ByCard(record), 100, DebitOptions{})
		require.NoError(t, err)
		assert.True(t, env.Succeeded())
		gw.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("fast path needs policy, reusable and billed together", func(t *testing.T) {
		tests := []struct {
			name          string
			reusable      bool
			billed        bool
			allowReusable bool
		}{
			{"policy off", true, true, false},
			{"not reusable", false, true, true},
			{"never billed", true, false, true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := new(MockStore)
				gw := new(MockGateway)
				svc := newTestService(store, gw, Config{AllowReusable: tt.allowReusable})

				record := baseCard()
				record.Reusable = tt.reusable
				record.Billed = tt.billed

				gw.On("Charge", mock.Anything, mock.Anything).Return(&gateway.Envelope{
					Status: true,
					Data:   &gateway.ChargeData{Status: "pending"},
				}, nil)

				_, err := svc.DebitCard(context.Background(), ByCard(record), 100, DebitOptions{})
				require.NoError(t, err)
				gw.AssertNotCalled(t, "ChargeAuthorization", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("card resolved by id via store", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		store.On("FindOne", mock.Anything, repositories.Filter{"card_id": "abc12345"}).Return(baseCard(), nil)
		gw.On("Charge", mock.Anything, mock.Anything).Return(&gateway.Envelope{
			Status: true,
			Data:   &gateway.ChargeData{Status: "failed"},
		}, nil)

		env, err := svc.DebitCard(context.Background(), ByID("abc12345"), 100, DebitOptions{})
		require.NoError(t, err)
		assert.Equal(t, "failed", env.TransactionStatus())
		store.AssertNotCalled(t, "MarkBilled", mock.Anything, mock.Anything)
	})

	t.Run("unknown card id fails fast", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		store.On("FindOne", mock.Anything, mock.Anything).Return(nil, nil)

		_, err := svc.DebitCard(context.Background(), ByID("missing"), 100, DebitOptions{})
		assert.ErrorIs(t, err, ErrCardNotFound)
		gw.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
	})

	t.Run("billed write failure surfaces with the envelope", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		gw.On("Charge", mock.Anything, mock.Anything).Return(successEnvelope("ref1", "AUTH_X"), nil)
		store.On("MarkBilled", mock.Anything, mock.Anything).Return(errors.New("write not acknowledged"))

		env, err := svc.DebitCard(context.Background(), ByCard(baseCard()), 100, DebitOptions{})
		assert.ErrorIs(t, err, ErrBilledNotRecorded)
		require.NotNil(t, env, "the caller must still see the confirmed charge")
		assert.True(t, env.Succeeded())
	})
}

func TestCompleteCharge(t *testing.T) {
	t.Run("otp success marks owning card billed by authorization code", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		owned := &models.Card{CardID: "abc12345", AuthorizationCode: "AUTH_X"}
		gw.On("SubmitOTP", mock.Anything, "123456", "ref1").Return(successEnvelope("ref1", "AUTH_X"), nil)
		store.On("FindOne", mock.Anything, repositories.Filter{"authorization_code": "AUTH_X"}).Return(owned, nil)
		store.On("MarkBilled", mock.Anything, owned).Return(nil)

		env, err := svc.CompleteCharge(context.Background(), CardRef{}, OTP("123456"), "ref1")
		require.NoError(t, err)
		assert.True(t, env.Succeeded())
		store.AssertExpectations(t)
	})

	t.Run("explicit card reference skips the authorization lookup", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		owned := &models.Card{CardID: "abc12345", AuthorizationCode: "AUTH_X"}
		gw.On("SubmitPin", mock.Anything, "0000", "ref1").Return(successEnvelope("ref1", "AUTH_X"), nil)
		store.On("MarkBilled", mock.Anything, owned).Return(nil)

		_, err := svc.CompleteCharge(context.Background(), ByCard(owned), Pin("0000"), "ref1")
		require.NoError(t, err)
		store.AssertNotCalled(t, "FindOne", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("card unknown to the store is tolerated", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		gw.On("SubmitPhone", mock.Anything, "09058283022", "ref1").Return(successEnvelope("ref1", "AUTH_Z"), nil)
		store.On("FindOne", mock.Anything, mock.Anything).Return(nil, nil)

		env, err := svc.CompleteCharge(context.Background(), CardRef{}, Phone("09058283022"), "ref1")
		require.NoError(t, err)
		assert.True(t, env.Succeeded())
		store.AssertNotCalled(t, "MarkBilled", mock.Anything, mock.Anything)
	})

	t.Run("unknown action fails fast", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		_, err := svc.CompleteCharge(context.Background(), CardRef{}, StepUp{Action: "fingerprint", Value: "x"}, "ref1")
		assert.ErrorIs(t, err, ErrUnknownAction)
		gw.AssertNotCalled(t, "SubmitOTP", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing reference fails fast", func(t *testing.T) {
		svc := newTestService(new(MockStore), new(MockGateway), Config{AllowReusable: true})
		_, err := svc.CompleteCharge(context.Background(), CardRef{}, OTP("123456"), "")
		assert.ErrorIs(t, err, ErrMissingReference)
	})
}

func TestResolveSteps(t *testing.T) {
	t.Run("drives supplied step-ups to completion", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true, MaxStepUpRounds: 5})

		pending := &gateway.Envelope{
			Status: true,
			Data:   &gateway.ChargeData{Status: "send_otp", Reference: "ref1"},
		}
		gw.On("SubmitOTP", mock.Anything, "123456", "ref1").Return(successEnvelope("ref1", "AUTH_X"), nil)
		store.On("FindOne", mock.Anything, mock.Anything).Return(nil, nil)

		env, err := svc.ResolveSteps(context.Background(), pending, map[StepUpAction]string{
			StepUpOTP: "123456",
		}, CardRef{})
		require.NoError(t, err)
		assert.True(t, env.Succeeded())
	})

	t.Run("stops when the pending action has no supplied value", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		pending := &gateway.Envelope{
			Status: true,
			Data:   &gateway.ChargeData{Status: "send_phone", Reference: "ref1"},
		}
		env, err := svc.ResolveSteps(context.Background(), pending, map[StepUpAction]string{
			StepUpOTP: "123456",
		}, CardRef{})
		require.NoError(t, err)
		assert.Equal(t, "phone", env.PendingAction())
		gw.AssertNotCalled(t, "SubmitPhone", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("round count is bounded", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true, MaxStepUpRounds: 3})

		pending := &gateway.Envelope{
			Status: true,
			Data:   &gateway.ChargeData{Status: "send_otp", Reference: "ref1"},
		}
		gw.On("SubmitOTP", mock.Anything, "123456", "ref1").Return(pending, nil).Times(3)

		env, err := svc.ResolveSteps(context.Background(), pending, map[StepUpAction]string{
			StepUpOTP: "123456",
		}, CardRef{})
		require.NoError(t, err)
		assert.Equal(t, "otp", env.PendingAction(), "still pending after the round cap")
		gw.AssertExpectations(t)
	})
}

func TestStatusQueries(t *testing.T) {
	t.Run("check status marks billed on confirmed success", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		owned := &models.Card{CardID: "abc12345", AuthorizationCode: "AUTH_X"}
		gw.On("CheckStatus", mock.Anything, "ref1").Return(successEnvelope("ref1", "AUTH_X"), nil)
		store.On("FindOne", mock.Anything, repositories.Filter{"authorization_code": "AUTH_X"}).Return(owned, nil)
		store.On("MarkBilled", mock.Anything, owned).Return(nil)

		env, err := svc.CheckStatus(context.Background(), "ref1")
		require.NoError(t, err)
		assert.True(t, env.Succeeded())
		store.AssertExpectations(t)
	})

	t.Run("pending status leaves the card untouched", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		gw.On("CheckStatus", mock.Anything, "ref1").Return(&gateway.Envelope{
			Status: true,
			Data:   &gateway.ChargeData{Status: "pending"},
		}, nil)

		_, err := svc.CheckStatus(context.Background(), "ref1")
		require.NoError(t, err)
		store.AssertNotCalled(t, "MarkBilled", mock.Anything, mock.Anything)
	})

	t.Run("verify transaction applies the same side effect", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		owned := &models.Card{CardID: "abc12345", AuthorizationCode: "AUTH_X"}
		gw.On("VerifyTransaction", mock.Anything, "ref1").Return(successEnvelope("ref1", "AUTH_X"), nil)
		store.On("FindOne", mock.Anything, repositories.Filter{"authorization_code": "AUTH_X"}).Return(owned, nil)
		store.On("MarkBilled", mock.Anything, owned).Return(nil)

		_, err := svc.VerifyTransaction(context.Background(), "ref1")
		require.NoError(t, err)
		store.AssertExpectations(t)
	})
}

func TestDeleteCard(t *testing.T) {
	t.Run("billed card deactivates the authorization first", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		record := &models.Card{CardID: "abc12345", AuthorizationCode: "AUTH_X", Billed: true}
		gw.On("DeactivateAuthorization", mock.Anything, "AUTH_X").Return(&gateway.Envelope{Status: true}, nil)
		store.On("Delete", mock.Anything, record).Return(nil)

		require.NoError(t, svc.DeleteCard(context.Background(), ByCard(record)))
		gw.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("unbilled card is deleted without a processor call", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		record := &models.Card{CardID: "abc12345", AuthorizationCode: "AUTH_X"}
		store.On("Delete", mock.Anything, record).Return(nil)

		require.NoError(t, svc.DeleteCard(context.Background(), ByCard(record)))
		gw.AssertNotCalled(t, "DeactivateAuthorization", mock.Anything, mock.Anything)
	})

	t.Run("deactivation failure does not block deletion", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		record := &models.Card{CardID: "abc12345", AuthorizationCode: "AUTH_X", Billed: true}
		gw.On("DeactivateAuthorization", mock.Anything, "AUTH_X").Return(nil, errors.New("connection reset"))
		store.On("Delete", mock.Anything, record).Return(nil)

		require.NoError(t, svc.DeleteCard(context.Background(), ByCard(record)))
		store.AssertExpectations(t)
	})
}

func TestAddCardWithCharge(t *testing.T) {
	t.Run("embeds recovery metadata and converts the amount", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		gw.On("Charge", mock.Anything, mock.MatchedBy(func(req gateway.ChargeRequest) bool {
			return req.Amount == 250050 &&
				req.Card != nil && req.Card.Number == "5078507850785078" &&
				req.Metadata["hashed_card"] == sha1Hex("5078507850785078") &&
				req.Metadata["phone"] == "09058283022" &&
				req.Metadata["order"] == "ord_9" &&
				req.Subaccount == "ACCT_sub"
		})).Return(&gateway.Envelope{
			Status: true,
			Data:   &gateway.ChargeData{Status: "send_pin", Reference: "ref2"},
		}, nil)

		env, err := svc.AddCardWithCharge(context.Background(), ChargeNewCardInput{
			Email:      "someone@example.com",
			Phone:      "09058283022",
			CardNumber: "5078 5078 5078 5078",
			CVV:        "884",
			ExpMonth:   "11",
			ExpYear:    "2028",
			Amount:     2500.50,
			Subaccount: "ACCT_sub",
			Metadata:   map[string]interface{}{"order": "ord_9"},
		})
		require.NoError(t, err)
		assert.Equal(t, "pin", env.PendingAction())
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCompleteAddCardWithCharge(t *testing.T) {
	t.Run("reconstructs and persists the card from verification", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		gw.On("VerifyTransaction", mock.Anything, "ref2").Return(&gateway.Envelope{
			Status: true,
			Data: &gateway.ChargeData{
				Status: "success",
				Authorization: &gateway.Authorization{
					AuthorizationCode: "AUTH_N",
					CardType:          "verve",
					Bin:               "507850",
					Last4:             "5078",
					ExpMonth:          "11",
					ExpYear:           "2028",
					Signature:         "SIG_N",
					Reusable:          true,
					CountryCode:       "NG",
				},
				Customer: &gateway.Customer{Email: "someone@example.com"},
				Metadata: map[string]interface{}{
					"hashed_card": sha1Hex("5078507850785078"),
					"phone":       "09058283022",
				},
			},
		}, nil)
		store.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Card) bool {
			return c.AuthorizationCode == "AUTH_N" &&
				c.Email == "someone@example.com" &&
				c.Phone == "09058283022" &&
				c.Billed &&
				c.HashedCard["value"] == sha1Hex("5078507850785078")
		})).Return(nil)

		record, err := svc.CompleteAddCardWithCharge(context.Background(), "ref2", "")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "507850", record.FirstSix)
		assert.Equal(t, "5078", record.LastFour)
		store.AssertExpectations(t)
	})

	t.Run("verification without authorization yields nothing", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		gw.On("VerifyTransaction", mock.Anything, "ref2").Return(&gateway.Envelope{
			Status: true,
			Data:   &gateway.ChargeData{Status: "failed"},
		}, nil)

		record, err := svc.CompleteAddCardWithCharge(context.Background(), "ref2", "")
		require.NoError(t, err)
		assert.Nil(t, record)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestLookups(t *testing.T) {
	t.Run("owner query heuristics", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		store.On("FindMany", mock.Anything, repositories.Filter{"email": "someone@example.com"}, mock.Anything).
			Return([]*models.Card{}, nil).Once()
		store.On("FindMany", mock.Anything, repositories.Filter{"phone": "09058283022"}, mock.Anything).
			Return([]*models.Card{}, nil).Once()

		_, err := svc.GetCards(context.Background(), "someone@example.com", repositories.ListOptions{})
		require.NoError(t, err)
		_, err = svc.GetCards(context.Background(), "09058283022", repositories.ListOptions{})
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("card from number probes hash and disclosed digits", func(t *testing.T) {
		store := new(MockStore)
		gw := new(MockGateway)
		svc := newTestService(store, gw, Config{AllowReusable: true})

		store.On("FindOne", mock.Anything, repositories.Filter{
			"hashed_card.value": sha1Hex("4084084084084081"),
			"first_six":         "408408",
			"last_four":         "4081",
		}).Return(&models.Card{CardID: "abc12345"}, nil)

		record, err := svc.GetCardFromNumber(context.Background(), "4084 0840 8408 4081")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "abc12345", record.CardID)
	})

	t.Run("card exists", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestService(store, new(MockGateway), Config{AllowReusable: true})

		store.On("Count", mock.Anything, repositories.Filter{"card_id": "abc12345"}).Return(int64(1), nil)
		ok, err := svc.CardExists(context.Background(), "abc12345")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
