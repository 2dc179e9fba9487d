package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"
)

type AccountUsecase struct {
	tx        repo.TransactionManager
	users     repo.UserRepository
	addresses repo.AddressRepository
}

// DI
func NewAccountUsecase(tx repo.TransactionManager, users repo.UserRepository, addresses repo.AddressRepository) *AccountUsecase {
	return &AccountUsecase{tx: tx, users: users, addresses: addresses}
}

// プロフィール（ユーザー名 + 配送先住所）
type Profile struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Company    string `json:"company"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type ProfileOutput struct {
	OK      bool    `json:"ok"`
	Profile Profile `json:"profile"`
}

// email は受け取っても無視する（セッションのものを使う）
type UpdateProfileInput struct {
	Name       string `json:"name"`
	Company    string `json:"company"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (u *AccountUsecase) GetProfile(ctx context.Context, userID int64) (ProfileOutput, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return ProfileOutput{}, errDB()
	}
	if user == nil {
		return ProfileOutput{}, NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	addr, err := u.addresses.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return ProfileOutput{}, errDB()
	}

	return ProfileOutput{OK: true, Profile: toProfile(*user, addr)}, nil
}

// UpdateProfile は名前の更新と住所の upsert を1トランザクションで行う
func (u *AccountUsecase) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (ProfileOutput, error) {
	var out ProfileOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, userID)
		if err != nil {
			return errDB()
		}
		if user == nil {
			return NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}

		// 空なら名前は変えない
		if name := strings.TrimSpace(in.Name); name != "" && name != user.Name {
			user.Name = name
			if err := r.Users().Update(ctx, user); err != nil {
				return errDB()
			}
		}

		addr, err := r.Addresses().Upsert(ctx, model.Address{
			UserID:     userID,
			Name:       user.Name,
			Company:    strings.TrimSpace(in.Company),
			Phone:      strings.TrimSpace(in.Phone),
			Line1:      strings.TrimSpace(in.Line1),
			Line2:      strings.TrimSpace(in.Line2),
			City:       strings.TrimSpace(in.City),
			Province:   strings.TrimSpace(in.Province),
			PostalCode: strings.TrimSpace(in.PostalCode),
			Country:    strings.TrimSpace(in.Country),
		})
		if err != nil {
			return errDB()
		}

		out = ProfileOutput{OK: true, Profile: toProfile(*user, addr)}
		return nil
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return ProfileOutput{}, err
		}
		return ProfileOutput{}, errDB()
	}
	return out, nil
}

func toProfile(user model.User, a model.Address) Profile {
	return Profile{
		Name:       user.Name,
		Email:      user.Email,
		Company:    a.Company,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		Province:   a.Province,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}
