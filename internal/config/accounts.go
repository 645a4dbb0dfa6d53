package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/yourneighborhoodchef/sellbot/internal/model"
)

// LoadAccounts reads the accounts file. Rows are email,password,price_delta
// after a header row; an empty price_delta falls back to defaultDelta.
func LoadAccounts(path string, defaultDelta int) ([]model.Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open accounts: %w", ErrInvalid, err)
	}
	defer f.Close()

	accounts, err := ParseAccounts(f, defaultDelta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return accounts, nil
}

func ParseAccounts(r io.Reader, defaultDelta int) ([]model.Account, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var accounts []model.Account
	seen := make(map[string]struct{})
	for first := true; ; first = false {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: accounts: %w", ErrInvalid, err)
		}
		line, _ := reader.FieldPos(0)
		if first && strings.EqualFold(strings.TrimSpace(row[0]), "email") {
			continue
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		acc, err := parseAccount(row, defaultDelta)
		if err != nil {
			return nil, fmt.Errorf("%w: accounts line %d: %w", ErrInvalid, line, err)
		}
		if _, dup := seen[acc.Email]; dup {
			return nil, fmt.Errorf("%w: accounts line %d: duplicate account %s", ErrInvalid, line, acc.Email)
		}
		seen[acc.Email] = struct{}{}
		accounts = append(accounts, acc)
	}

	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: no accounts", ErrInvalid)
	}
	return accounts, nil
}

func parseAccount(row []string, defaultDelta int) (model.Account, error) {
	if len(row) < 2 || len(row) > 3 {
		return model.Account{}, fmt.Errorf("expected email,password[,price_delta], got %d fields", len(row))
	}

	acc := model.Account{
		Email:      strings.TrimSpace(row[0]),
		Password:   row[1],
		PriceDelta: defaultDelta,
	}
	if acc.Email == "" || acc.Password == "" {
		return model.Account{}, errors.New("email and password are required")
	}

	if len(row) == 3 && strings.TrimSpace(row[2]) != "" {
		delta, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil || delta < 0 {
			return model.Account{}, fmt.Errorf("invalid price_delta %q", row[2])
		}
		acc.PriceDelta = delta
	}
	return acc, nil
}
