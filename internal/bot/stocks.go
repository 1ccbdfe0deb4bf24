package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/Spok95/florist-stock/internal/reports"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxListed длинные списки режем, Telegram ограничивает сообщение 4096 символами.
const maxListed = 50

func formatMaterials(title string, list []materials.Material) string {
	var sb strings.Builder
	sb.WriteString(title)
	for i, m := range list {
		if i == maxListed {
			fmt.Fprintf(&sb, "\n… и ещё %d", len(list)-maxListed)
			break
		}
		mark := ""
		if m.IsLowStock() {
			mark = " ⚠️"
		}
		fmt.Fprintf(&sb, "\n[%d] %s: %g %s%s", m.ID, m.Name, m.Quantity, m.Unit, mark)
	}
	return sb.String()
}

func (b *Bot) showLowStock(ctx context.Context, chatID int64) {
	list, err := b.svc.ListMaterials(ctx, materials.Filter{OnlyLowStock: true})
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if len(list) == 0 {
		b.reply(chatID, "Все остатки выше минимума.")
		return
	}
	b.reply(chatID, formatMaterials("Заканчиваются:", list))
}

func (b *Bot) showStock(ctx context.Context, chatID int64, search string) {
	list, err := b.svc.ListMaterials(ctx, materials.Filter{Search: search})
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if len(list) == 0 {
		b.reply(chatID, "Материалы не найдены.")
		return
	}
	b.reply(chatID, formatMaterials("Остатки:", list))
}

func (b *Bot) exportStock(ctx context.Context, chatID int64) {
	list, err := b.svc.ListMaterials(ctx, materials.Filter{})
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	var buf bytes.Buffer
	if err := reports.ExportStock(&buf, list); err != nil {
		b.replyError(chatID, err)
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("stock_%s.xlsx", time.Now().Format("20060102_150405")),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("Остатки: %d позиций. Для инвентаризации заполните колонку counted и пришлите файл обратно.", len(list))
	b.send(doc)
}

func (b *Bot) startAudit(ctx context.Context, chatID int64) {
	a, err := b.svc.StartAudit(ctx, "telegram")
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Инвентаризация #%d начата, позиций: %d. Пришлите заполненный файл из /export.", a.ID, len(a.Items)))
}

func (b *Bot) completeAudit(ctx context.Context, chatID int64) {
	a, err := b.svc.CurrentAudit(ctx)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	res, err := b.svc.CompleteAudit(ctx, a.ID)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Инвентаризация #%d завершена, корректировок: %d.", res.AuditID, res.Adjustments))
}

// handleDocument принимает xlsx из /export с заполненной колонкой counted
// и записывает подсчёт в текущую инвентаризацию.
func (b *Bot) handleDocument(ctx context.Context, chatID int64, doc *tgbotapi.Document) {
	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".xlsx") {
		b.reply(chatID, "Ожидается файл .xlsx")
		return
	}
	a, err := b.svc.CurrentAudit(ctx)
	if err != nil {
		b.reply(chatID, "Нет активной инвентаризации, начните её командой /audit")
		return
	}

	data, err := b.downloadTelegramFile(ctx, doc.FileID)
	if err != nil {
		b.log.Error("download file failed", "err", err)
		b.reply(chatID, "Не удалось скачать файл.")
		return
	}
	counts, err := reports.ImportCounts(bytes.NewReader(data))
	if err != nil {
		b.reply(chatID, "Не удалось прочитать файл: "+err.Error())
		return
	}
	if len(counts) == 0 {
		b.reply(chatID, "В файле не заполнена колонка counted.")
		return
	}

	n, err := b.svc.RecordCounts(ctx, a.ID, counts)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Инвентаризация #%d: записано позиций %d. Завершить: /complete", a.ID, n))
}
