package main

import (
	"context"

	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	"github.com/jhoicas/inventario-flujo/pkg/logger"
)

// logNotifier se usa cuando no hay Redis: deja la notificación en los logs.
type logNotifier struct {
	log *logger.Logger
}

func (n logNotifier) Notify(_ context.Context, item entity.Notification) error {
	n.log.Info().
		Str("topic", item.Topic).
		Str("company_id", item.CompanyID).
		Str("document_id", item.DocumentID).
		Str("product_id", item.ProductID).
		Msg("notificación")
	return nil
}
