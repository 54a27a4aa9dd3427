package wallet

import (
	"context"
	"log/slog"

	"github.com/Fantasim/btcconnect/internal/models"
)

// PageFunc fetches one page of inscriptions.
type PageFunc func(ctx context.Context, offset, limit int) (models.InscriptionPage, error)

// Paginate walks fetch with a fixed page size and an advancing offset until a
// page comes back shorter than requested. After maxPages full pages it stops,
// logs a warning and returns what it has with Truncated set.
func Paginate(ctx context.Context, wallet models.WalletType, fetch PageFunc, pageSize, maxPages int) (models.InscriptionCollection, error) {
	out := models.InscriptionCollection{List: []models.Inscription{}}
	offset := 0

	for out.Pages < maxPages {
		if err := ctx.Err(); err != nil {
			return models.InscriptionCollection{}, err
		}

		page, err := fetch(ctx, offset, pageSize)
		if err != nil {
			return models.InscriptionCollection{}, err
		}
		out.Pages++
		out.List = append(out.List, page.List...)

		slog.Debug("inscription page fetched",
			"wallet", wallet,
			"page", out.Pages,
			"offset", offset,
			"count", len(page.List),
			"total", page.Total,
		)

		if len(page.List) < pageSize {
			return out, nil
		}
		offset += len(page.List)
	}

	out.Truncated = true
	slog.Warn("inscription pagination cap reached, result is partial",
		"wallet", wallet,
		"pages", out.Pages,
		"pageSize", pageSize,
		"collected", len(out.List),
	)
	return out, nil
}
