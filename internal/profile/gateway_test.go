package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/xkdemo/moments/internal/gateway"
	mock_gateway "github.com/xkdemo/moments/internal/gateway/mocks"
	"github.com/xkdemo/moments/internal/mapper"
	pkgerrors "github.com/xkdemo/moments/pkg/errors"
	"github.com/xkdemo/moments/pkg/logger"
	"go.uber.org/mock/gomock"
)

var userID = uuid.MustParse("5a0d4c2e-8f1b-4c3d-9e7f-112233445566")

func ptr(s string) *string { return &s }

func newService(t *testing.T) (*Gateway, *mock_gateway.MockTableStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	tables := mock_gateway.NewMockTableStore(ctrl)
	return NewGateway(tables, logger.Nop()), tables
}

func TestFetch(t *testing.T) {
	tests := []struct {
		name     string
		rows     []gateway.Record
		err      error
		wantNil  bool
		wantErr  bool
		nickname string
	}{
		{
			name:     "found",
			rows:     []gateway.Record{{mapper.ColID: userID.String(), mapper.ColNickname: "Bob"}},
			nickname: "Bob",
		},
		{name: "no rows", rows: nil, wantNil: true},
		{name: "not found code", err: pkgerrors.WrapWithCode(errors.New("no rows"), pkgerrors.CodeNotFound, "select"), wantNil: true},
		{name: "network", err: pkgerrors.WrapWithCode(errors.New("refused"), pkgerrors.CodeNetwork, "select"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, tables := newService(t)
			tables.EXPECT().
				Select(gomock.Any(), gateway.TableProfiles, gateway.Query{
					Eq:    map[string]any{mapper.ColID: userID.String()},
					Limit: 1,
				}).
				Return(tt.rows, tt.err)

			p, err := svc.Fetch(context.Background(), userID)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if p != nil {
					t.Fatalf("expected nil profile, got %+v", p)
				}
				return
			}
			if p == nil || p.Nickname == nil || *p.Nickname != tt.nickname {
				t.Fatalf("unexpected profile %+v", p)
			}
		})
	}
}

func TestUpdateRequiresChanges(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Update(context.Background(), userID, Changes{}); !errors.Is(err, ErrNothingToUpdate) {
		t.Fatalf("expected ErrNothingToUpdate, got %v", err)
	}
}

func TestUpdateSendsOnlyGivenFields(t *testing.T) {
	svc, tables := newService(t)
	tables.EXPECT().
		Update(gomock.Any(), gateway.TableProfiles, userID.String(), gateway.Record{mapper.ColAvatarURL: "https://x/a.png"}).
		Return(gateway.Record{mapper.ColID: userID, mapper.ColAvatarURL: "https://x/a.png", mapper.ColNickname: "Bob"}, nil)

	p, err := svc.Update(context.Background(), userID, Changes{AvatarURL: ptr("https://x/a.png")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != userID || *p.AvatarURL != "https://x/a.png" || *p.Nickname != "Bob" {
		t.Fatalf("unexpected profile %+v", p)
	}
}

func TestGetOrCreate(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		svc, tables := newService(t)
		tables.EXPECT().
			Select(gomock.Any(), gateway.TableProfiles, gomock.Any()).
			Return([]gateway.Record{{mapper.ColID: userID.String(), mapper.ColNickname: "Bob"}}, nil)
		tables.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		p, err := svc.GetOrCreate(context.Background(), userID, Changes{Nickname: ptr("Other")})
		if err != nil || *p.Nickname != "Bob" {
			t.Fatalf("expected existing profile, got %+v / %v", p, err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		svc, tables := newService(t)
		tables.EXPECT().
			Select(gomock.Any(), gateway.TableProfiles, gomock.Any()).
			Return(nil, nil)
		tables.EXPECT().
			Insert(gomock.Any(), gateway.TableProfiles, gateway.Record{mapper.ColID: userID.String(), mapper.ColNickname: "Bob"}).
			DoAndReturn(func(ctx context.Context, table string, rec gateway.Record) (gateway.Record, error) {
				return rec, nil
			})

		p, err := svc.GetOrCreate(context.Background(), userID, Changes{Nickname: ptr("Bob")})
		if err != nil || p.ID != userID || *p.Nickname != "Bob" {
			t.Fatalf("expected created profile, got %+v / %v", p, err)
		}
	})
}
