package handler

import (
	"net/http"

	"starktol/internal/middleware"
	"starktol/internal/repository"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	walletRepo *repository.WalletRepository
}

func NewWalletHandler(walletRepo *repository.WalletRepository) *WalletHandler {
	return &WalletHandler{walletRepo: walletRepo}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	w, err := h.walletRepo.GetOrCreate(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load wallet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance_kobo": w.BalanceKobo,
		"currency":     w.Currency,
	})
}

func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	txs, err := h.walletRepo.Transactions(userID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load transactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
