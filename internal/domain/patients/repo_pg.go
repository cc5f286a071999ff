package patients

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicheck/mcu/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, no_rm, nama, jenis_kelamin, tanggal_lahir, perusahaan, alamat, telepon, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.NoRM, &p.Nama, &p.JenisKelamin, &p.TanggalLahir, &p.Perusahaan, &p.Alamat, &p.Telepon, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, no_rm, nama, jenis_kelamin, tanggal_lahir, perusahaan, alamat, telepon)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.NoRM, p.Nama, p.JenisKelamin, p.TanggalLahir, p.Perusahaan, p.Alamat, p.Telepon)
	return err
}

func (r *repoPG) Upsert(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, no_rm, nama, jenis_kelamin, tanggal_lahir, perusahaan, alamat, telepon)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (no_rm) DO UPDATE SET
			nama = EXCLUDED.nama,
			jenis_kelamin = EXCLUDED.jenis_kelamin,
			tanggal_lahir = EXCLUDED.tanggal_lahir,
			perusahaan = EXCLUDED.perusahaan,
			alamat = EXCLUDED.alamat,
			telepon = EXCLUDED.telepon,
			updated_at = NOW()`,
		p.ID, p.NoRM, p.Nama, p.JenisKelamin, p.TanggalLahir, p.Perusahaan, p.Alamat, p.Telepon)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) GetByNoRM(ctx context.Context, noRM string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE no_rm = $1`, noRM))
}

func (r *repoPG) List(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	if search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(` AND (nama ILIKE $%d OR no_rm ILIKE $%d)`, len(args), len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients `+where+
			fmt.Sprintf(` ORDER BY nama ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET no_rm=$2, nama=$3, jenis_kelamin=$4, tanggal_lahir=$5,
			perusahaan=$6, alamat=$7, telepon=$8, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.NoRM, p.Nama, p.JenisKelamin, p.TanggalLahir, p.Perusahaan, p.Alamat, p.Telepon)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
