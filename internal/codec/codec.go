// Package codec сериализует состояние в текстовый снапшот и обратно.
//
// Формат сообщения: строка-метка, строка времени, пустая строка и
// base64(JSON) со всем состоянием. Такое сообщение целиком помещается в
// один объект канала хранения и переживает его как непрозрачный текст.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mvolkov/accmarket-bot/internal/model"
)

// TagLine — метка, по которой снапшот отличается от прочих сообщений
// канала.
const TagLine = "📊 DATABASE BACKUP"

const snapshotVersion = 1

// snapshot — проволочное представление состояния. Множество выданных
// учётных данных передаётся упорядоченным срезом.
type snapshot struct {
	Version         int                   `json:"version"`
	Users           map[int64]*model.User `json:"users"`
	Stock           []*model.StockItem    `json:"stock"`
	Transactions    []*model.Transaction  `json:"transactions"`
	Payments        []*model.Payment      `json:"payments"`
	Settings        map[string]int64      `json:"settings"`
	UsedCredentials []string              `json:"used_credentials"`
	Admins          []int64               `json:"admins"`
}

// Codec кодирует и декодирует снапшоты состояния.
type Codec struct {
	now func() time.Time
}

// New создаёт кодек.
func New() *Codec {
	return &Codec{now: time.Now}
}

// IsSnapshot сообщает, является ли тело сообщения снапшотом состояния.
func IsSnapshot(body string) bool {
	line, _, _ := strings.Cut(body, "\n")
	return strings.TrimSpace(line) == TagLine
}

// Encode сериализует состояние в тело одного сообщения канала.
func (c *Codec) Encode(st *model.State) (string, error) {
	used := make([]string, 0, len(st.UsedCredentials))
	for cred := range st.UsedCredentials {
		used = append(used, cred)
	}
	sort.Strings(used)

	snap := snapshot{
		Version:         snapshotVersion,
		Users:           st.Users,
		Stock:           st.Stock,
		Transactions:    st.Transactions,
		Payments:        st.Payments,
		Settings:        st.Settings,
		UsedCredentials: used,
		Admins:          st.Admins,
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	payload := base64.StdEncoding.EncodeToString(raw)
	return fmt.Sprintf("%s\nTime: %s\n\n%s", TagLine, c.now().UTC().Format(time.RFC3339), payload), nil
}

// Decode восстанавливает состояние из тела сообщения. Любое повреждение
// снапшота поднимается как *model.DecodeError; отсутствующая версия —
// тоже ошибка декодирования, поля не домысливаются.
func (c *Codec) Decode(body string) (*model.State, error) {
	if !IsSnapshot(body) {
		return nil, &model.DecodeError{Reason: "missing snapshot tag"}
	}

	_, payload, found := strings.Cut(body, "\n\n")
	if !found || strings.TrimSpace(payload) == "" {
		return nil, &model.DecodeError{Reason: "missing payload"}
	}

	raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(payload), ""))
	if err != nil {
		return nil, &model.DecodeError{Reason: "bad base64 payload", Err: err}
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, &model.DecodeError{Reason: "bad json payload", Err: err}
	}
	if snap.Version != snapshotVersion {
		return nil, &model.DecodeError{Reason: fmt.Sprintf("unsupported snapshot version %d", snap.Version)}
	}

	used := make(map[string]struct{}, len(snap.UsedCredentials))
	for _, cred := range snap.UsedCredentials {
		used[cred] = struct{}{}
	}

	return &model.State{
		Users:           snap.Users,
		Stock:           snap.Stock,
		Transactions:    snap.Transactions,
		Payments:        snap.Payments,
		Settings:        snap.Settings,
		UsedCredentials: used,
		Admins:          snap.Admins,
	}, nil
}
