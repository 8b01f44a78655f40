package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// FindShipmentByBooking implements ports.ShipmentRepository (§4.5
// find-or-create priority 1).
func (db *DB) FindShipmentByBooking(ctx context.Context, bookingNumber string) (*domain.Shipment, error) {
	return db.findShipmentBy(ctx, "booking_number", bookingNumber)
}

// FindShipmentByMBL implements ports.ShipmentRepository (priority 2).
func (db *DB) FindShipmentByMBL(ctx context.Context, mblNumber string) (*domain.Shipment, error) {
	return db.findShipmentBy(ctx, "mbl_number", mblNumber)
}

// FindShipmentByWorkOrder implements ports.ShipmentRepository (priority 3).
func (db *DB) FindShipmentByWorkOrder(ctx context.Context, workOrderNumber string) (*domain.Shipment, error) {
	return db.findShipmentBy(ctx, "work_order_number", workOrderNumber)
}

func (db *DB) findShipmentBy(ctx context.Context, column, value string) (*domain.Shipment, error) {
	row := db.Pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT shipment_id, booking_number, mbl_number, work_order_number, stage,
		       stage_updated_at, stage_history, etd, eta, si_cutoff, vgm_cutoff,
		       cargo_cutoff, doc_cutoff, vessel, carrier, shipper, consignee, notify,
		       created_at, updated_at
		FROM shipments WHERE %s = $1
	`, column), value)

	s, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("find shipment by %s: %w", column, err)
	}

	s.Identifiers.ContainerNumbers, err = db.shipmentContainers(ctx, s.ShipmentID)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// FindShipmentByContainer implements ports.ShipmentRepository (priority 4).
func (db *DB) FindShipmentByContainer(ctx context.Context, containerNumber string) (*domain.Shipment, error) {
	var shipmentID string

	if err := db.Pool.QueryRow(ctx, `
		SELECT shipment_id FROM shipment_containers WHERE container_number = $1
	`, containerNumber).Scan(&shipmentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("find shipment by container: %w", err)
	}

	row := db.Pool.QueryRow(ctx, `
		SELECT shipment_id, booking_number, mbl_number, work_order_number, stage,
		       stage_updated_at, stage_history, etd, eta, si_cutoff, vgm_cutoff,
		       cargo_cutoff, doc_cutoff, vessel, carrier, shipper, consignee, notify,
		       created_at, updated_at
		FROM shipments WHERE shipment_id = $1
	`, shipmentID)

	s, err := scanShipment(row)
	if err != nil {
		return nil, fmt.Errorf("load shipment by container: %w", err)
	}

	s.Identifiers.ContainerNumbers, err = db.shipmentContainers(ctx, s.ShipmentID)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (db *DB) shipmentContainers(ctx context.Context, shipmentID string) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT container_number FROM shipment_containers WHERE shipment_id = $1
	`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("query shipment containers: %w", err)
	}
	defer rows.Close()

	var containers []string

	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan shipment container: %w", err)
		}

		containers = append(containers, c)
	}

	return containers, rows.Err()
}

// CreateShipment implements ports.ShipmentRepository (§4.5 step 5).
func (db *DB) CreateShipment(ctx context.Context, s *domain.Shipment) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create shipment tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	shipperJSON, consigneeJSON, notifyJSON, err := marshalParties(s.Shipper, s.Consignee, s.Notify)
	if err != nil {
		return err
	}

	historyJSON, err := json.Marshal(s.StageHistory)
	if err != nil {
		return fmt.Errorf("marshal stage history: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO shipments (
			shipment_id, booking_number, mbl_number, work_order_number, stage,
			stage_updated_at, stage_history, etd, eta, si_cutoff, vgm_cutoff, cargo_cutoff,
			doc_cutoff, vessel, carrier, shipper, consignee, notify, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`,
		s.ShipmentID, s.Identifiers.BookingNumber, s.Identifiers.MBLNumber, s.Identifiers.WorkOrderNumber,
		int(s.Stage), s.StageUpdatedAt, historyJSON, s.ETD, s.ETA, s.SICutoff, s.VGMCutoff, s.CargoCutoff,
		s.DocCutoff, s.Vessel, s.Carrier, shipperJSON, consigneeJSON, notifyJSON, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert shipment: %w", err)
	}

	for _, container := range s.Identifiers.ContainerNumbers {
		if _, err := tx.Exec(ctx, `
			INSERT INTO shipment_containers (shipment_id, container_number) VALUES ($1, $2)
			ON CONFLICT (container_number) DO NOTHING
		`, s.ShipmentID, container); err != nil {
			return fmt.Errorf("insert shipment container: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create shipment tx: %w", err)
	}

	return nil
}

// SaveShipment implements ports.ShipmentRepository — updates the
// mutable fields of an existing shipment (stage, cutoffs, merged
// identifiers) after linker merge logic.
func (db *DB) SaveShipment(ctx context.Context, s *domain.Shipment) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save shipment tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	shipperJSON, consigneeJSON, notifyJSON, err := marshalParties(s.Shipper, s.Consignee, s.Notify)
	if err != nil {
		return err
	}

	historyJSON, err := json.Marshal(s.StageHistory)
	if err != nil {
		return fmt.Errorf("marshal stage history: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE shipments SET
			booking_number = $2, mbl_number = $3, work_order_number = $4, stage = $5,
			stage_updated_at = $6, stage_history = $7, etd = $8, eta = $9, si_cutoff = $10,
			vgm_cutoff = $11, cargo_cutoff = $12, doc_cutoff = $13, vessel = $14, carrier = $15,
			shipper = $16, consignee = $17, notify = $18, updated_at = $19
		WHERE shipment_id = $1
	`,
		s.ShipmentID, s.Identifiers.BookingNumber, s.Identifiers.MBLNumber, s.Identifiers.WorkOrderNumber,
		int(s.Stage), s.StageUpdatedAt, historyJSON, s.ETD, s.ETA, s.SICutoff, s.VGMCutoff, s.CargoCutoff,
		s.DocCutoff, s.Vessel, s.Carrier, shipperJSON, consigneeJSON, notifyJSON, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}

	for _, container := range s.Identifiers.ContainerNumbers {
		if _, err := tx.Exec(ctx, `
			INSERT INTO shipment_containers (shipment_id, container_number) VALUES ($1, $2)
			ON CONFLICT (container_number) DO NOTHING
		`, s.ShipmentID, container); err != nil {
			return fmt.Errorf("insert shipment container: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save shipment tx: %w", err)
	}

	return nil
}

func marshalParties(shipper, consignee, notify *domain.Party) ([]byte, []byte, []byte, error) {
	shipperJSON, err := json.Marshal(shipper)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal shipper: %w", err)
	}

	consigneeJSON, err := json.Marshal(consignee)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal consignee: %w", err)
	}

	notifyJSON, err := json.Marshal(notify)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal notify: %w", err)
	}

	return shipperJSON, consigneeJSON, notifyJSON, nil
}

func scanShipment(row rowScanner) (*domain.Shipment, error) {
	var (
		s                                                      domain.Shipment
		stage                                                  int
		historyJSON, shipperJSON, consigneeJSON, notifyJSON    []byte
	)

	if err := row.Scan(
		&s.ShipmentID, &s.Identifiers.BookingNumber, &s.Identifiers.MBLNumber, &s.Identifiers.WorkOrderNumber,
		&stage, &s.StageUpdatedAt, &historyJSON, &s.ETD, &s.ETA, &s.SICutoff, &s.VGMCutoff, &s.CargoCutoff,
		&s.DocCutoff, &s.Vessel, &s.Carrier, &shipperJSON, &consigneeJSON, &notifyJSON, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	s.Stage = domain.Stage(stage)

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &s.StageHistory); err != nil {
			return nil, fmt.Errorf("unmarshal stage history: %w", err)
		}
	}

	if err := unmarshalParty(shipperJSON, &s.Shipper); err != nil {
		return nil, err
	}

	if err := unmarshalParty(consigneeJSON, &s.Consignee); err != nil {
		return nil, err
	}

	if err := unmarshalParty(notifyJSON, &s.Notify); err != nil {
		return nil, err
	}

	return &s, nil
}

func unmarshalParty(raw []byte, dest **domain.Party) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var p domain.Party
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("unmarshal party: %w", err)
	}

	*dest = &p

	return nil
}
