package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Spok95/florist-stock/internal/stock"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `Команды:
/low - материалы с низким остатком
/stock [поиск] - остатки
/can <id продукта> [кол-во] - сколько можно собрать
/deduct <id продукта> <кол-во> [force] - списать материалы на производство
/add <id материала> <кол-во> [комментарий] - приход
/writeoff <id материала> <кол-во> [комментарий] - списание брака
/export - выгрузка остатков в Excel
/audit - начать инвентаризацию
/complete - завершить текущую инвентаризацию
Файл .xlsx из /export с заполненной колонкой counted записывает подсчёт в текущую инвентаризацию.`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, helpText)
	case "low":
		b.showLowStock(ctx, chatID)
	case "stock":
		b.showStock(ctx, chatID, strings.Join(args, " "))
	case "can":
		b.checkAvailability(ctx, chatID, args)
	case "deduct":
		b.deduct(ctx, chatID, args)
	case "add":
		b.addStock(ctx, chatID, args)
	case "writeoff":
		b.writeOff(ctx, chatID, args)
	case "export":
		b.exportStock(ctx, chatID)
	case "audit":
		b.startAudit(ctx, chatID)
	case "complete":
		b.completeAudit(ctx, chatID)
	default:
		b.reply(chatID, "Не знаю такую команду. Наберите /help")
	}
}

func (b *Bot) checkAvailability(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 || len(args) > 2 {
		b.reply(chatID, "Формат: /can <id продукта> [кол-во]")
		return
	}
	productID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(chatID, "Некорректный id продукта")
		return
	}
	qty := 1
	if len(args) == 2 {
		if qty, err = strconv.Atoi(args[1]); err != nil {
			b.reply(chatID, "Количество должно быть целым числом")
			return
		}
	}

	av, err := b.svc.CheckAvailability(ctx, productID, qty)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: запрошено %d, ", av.ProductName, av.Requested)
	if av.CanMake == stock.Unlimited {
		sb.WriteString("состав не ограничивает сборку")
	} else {
		fmt.Fprintf(&sb, "можно собрать %d", av.CanMake)
	}
	if av.LimitingMaterial != nil {
		fmt.Fprintf(&sb, "\nОграничивает: %s (%g %s)",
			av.LimitingMaterial.Material, av.LimitingMaterial.Available, av.LimitingMaterial.Unit)
	}
	for _, m := range av.Materials {
		mark := "✅"
		if m.IsLimiting {
			mark = "⚠️"
		}
		fmt.Fprintf(&sb, "\n%s %s: %g %s, на 1 шт %g, хватит на %d",
			mark, m.Material, m.Available, m.Unit, m.NeededPerUnit, m.CanMake)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) deduct(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 || len(args) > 3 {
		b.reply(chatID, "Формат: /deduct <id продукта> <кол-во> [force]")
		return
	}
	productID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(chatID, "Некорректный id продукта")
		return
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		b.reply(chatID, "Количество должно быть целым числом")
		return
	}
	force := len(args) == 3 && args[2] == "force"

	rep, err := b.svc.DeductMaterials(ctx, productID, qty, force)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Списано на %s x %d", rep.ProductName, rep.Quantity)
	if rep.Forced {
		sb.WriteString(" (принудительно)")
	}
	for _, d := range rep.Deducted {
		fmt.Fprintf(&sb, "\n• %s: −%g %s, осталось %g", d.Material, d.Deducted, d.Unit, d.Remaining)
	}
	b.reply(chatID, sb.String())
}

// parseMaterialArgs <id> <кол-во> [комментарий...]
func parseMaterialArgs(args []string) (id int64, qty float64, comment string, err error) {
	if len(args) < 2 {
		return 0, 0, "", errors.New("not enough arguments")
	}
	if id, err = strconv.ParseInt(args[0], 10, 64); err != nil {
		return 0, 0, "", err
	}
	if qty, err = strconv.ParseFloat(strings.ReplaceAll(args[1], ",", "."), 64); err != nil {
		return 0, 0, "", err
	}
	return id, qty, strings.Join(args[2:], " "), nil
}

func (b *Bot) addStock(ctx context.Context, chatID int64, args []string) {
	id, qty, note, err := parseMaterialArgs(args)
	if err != nil {
		b.reply(chatID, "Формат: /add <id материала> <кол-во> [комментарий]")
		return
	}
	m, err := b.svc.AddStock(ctx, id, qty, note)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Приход: %s +%g %s, остаток %g", m.Name, qty, m.Unit, m.Quantity))
}

func (b *Bot) writeOff(ctx context.Context, chatID int64, args []string) {
	id, qty, comment, err := parseMaterialArgs(args)
	if err != nil {
		b.reply(chatID, "Формат: /writeoff <id материала> <кол-во> [комментарий]")
		return
	}
	m, err := b.svc.WriteOff(ctx, id, qty, comment)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Списание: %s −%g %s, остаток %g", m.Name, qty, m.Unit, m.Quantity))
}

// replyError текст ошибки сервиса для чата; неожиданные ошибки только в лог.
func (b *Bot) replyError(chatID int64, err error) {
	var ins *stock.InsufficientStockError
	switch {
	case errors.As(err, &ins):
		b.reply(chatID, "❌ "+ins.Error())
	case errors.Is(err, stock.ErrNotFound):
		b.reply(chatID, "Не найдено: "+err.Error())
	case errors.Is(err, stock.ErrInvalidArgument):
		b.reply(chatID, "Некорректные данные: "+err.Error())
	case errors.Is(err, stock.ErrConflict):
		b.reply(chatID, "Конфликт: "+err.Error())
	default:
		b.log.Error("bot command failed", "err", err)
		b.reply(chatID, "Внутренняя ошибка, попробуйте позже")
	}
}
