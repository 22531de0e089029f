package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/symbollist/transport/http/dto"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/symbollist/usecase"
)

// SymbolUsecase は銘柄情報に関するユースケースのインターフェースです。
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type SymbolUsecase interface {
	ListSymbols(ctx context.Context, limit int) (usecase.SymbolList, error)
}

// SymbolHandler は銘柄情報に関するHTTPリクエストを処理します。
type SymbolHandler struct {
	uc SymbolUsecase
}

// NewSymbolHandler は新しい SymbolHandler を作成します。
func NewSymbolHandler(uc SymbolUsecase) *SymbolHandler {
	return &SymbolHandler{uc: uc}
}

// List は最新の生データに含まれる銘柄の一覧を返すAPIです。
// limit が整数でない場合は400、Usecaseでエラーが発生した場合は502を返します。
//
// エンドポイント例:
// GET /symbols?limit=5
func (h *SymbolHandler) List(c *gin.Context) {
	var req dto.SymbolListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter", "message": "Limit must be a valid positive integer"})
		return
	}

	list, err := h.uc.ListSymbols(c.Request.Context(), req.Limit)
	if err != nil {
		slog.Error("failed to list symbols", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to retrieve symbols", "message": err.Error()})
		return
	}

	out := dto.SymbolListResponse{
		Symbols:   make([]string, 0, len(list.Symbols)),
		Count:     len(list.Symbols),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for _, s := range list.Symbols {
		out.Symbols = append(out.Symbols, s.Code)
	}
	if !list.FetchedAt.IsZero() {
		out.FetchedAt = list.FetchedAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, out)
}
