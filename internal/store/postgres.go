package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/spigell/scholar-matcher/internal/matching"
)

const (
	offersQuery = `SELECT id::text, title, organization, amount, currency, deadline,
       field, level, country, category, min_gpa, max_age, citizenship, gender,
       description, requirements, tags, application_url, is_active
FROM scholarships
WHERE is_active
ORDER BY created_at, id`

	profileQuery = `SELECT id::text, gpa, age, citizenship, education_level, academic_level,
       field_of_study, category, gender, region, income, preferences
FROM users
WHERE id::text = $1`
)

// Postgres reads the catalog and applicant profiles from the application
// database.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgres(db *sql.DB, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{db: db, logger: logger}
}

// OpenPostgres connects with dsn and checks the connection.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return NewPostgres(db, logger), nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

// Offers returns active scholarships in catalog order.
func (p *Postgres) Offers(ctx context.Context) (*Offers, error) {
	rows, err := p.db.QueryContext(ctx, offersQuery)
	if err != nil {
		return nil, fmt.Errorf("query scholarships: %w", err)
	}
	defer rows.Close()

	offers := &Offers{}
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scholarship: %w", err)
		}
		offers.Items = append(offers.Items, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read scholarships: %w", err)
	}

	p.logger.Debug("loaded scholarships from postgres", zap.Int("count", offers.Len()))
	return offers, nil
}

func scanOffer(rows *sql.Rows) (*matching.Offer, error) {
	var (
		offer                                  matching.Offer
		organization, currency, field, level   sql.NullString
		country, category, gender, description sql.NullString
		applicationURL                         sql.NullString
		amount, minGPA                         sql.NullFloat64
		maxAge                                 sql.NullInt64
		deadline                               sql.NullTime
		citizenship, requirements, tags        pq.StringArray
	)

	err := rows.Scan(
		&offer.ID, &offer.Title, &organization, &amount, &currency, &deadline,
		&field, &level, &country, &category, &minGPA, &maxAge, &citizenship, &gender,
		&description, &requirements, &tags, &applicationURL, &offer.IsActive,
	)
	if err != nil {
		return nil, err
	}

	offer.Organization = organization.String
	offer.Amount = amount.Float64
	offer.Currency = currency.String
	if deadline.Valid {
		offer.Deadline = deadline.Time.UTC()
	}
	offer.Field = field.String
	offer.Level = level.String
	offer.Country = country.String
	offer.Category = matching.CanonicalCategory(category.String)
	offer.Description = description.String
	offer.Requirements = requirements
	offer.Tags = tags
	offer.ApplicationURL = applicationURL.String

	if minGPA.Valid {
		gpa := minGPA.Float64
		offer.Eligibility.GPAThreshold = &gpa
	}
	if maxAge.Valid {
		age := int(maxAge.Int64)
		offer.Eligibility.AgeCeiling = &age
	}
	offer.Eligibility.Citizenship = citizenship
	offer.Eligibility.Gender = gender.String

	return &offer, nil
}

// Profile loads a user row and normalizes it like any other profile record.
func (p *Postgres) Profile(ctx context.Context, id string) (*matching.Profile, error) {
	var (
		userID                                      string
		gpa, income                                 sql.NullFloat64
		age                                         sql.NullInt64
		educationLevel, academicLevel, fieldOfStudy sql.NullString
		category, gender, region, citizenship       sql.NullString
		preferences                                 pq.StringArray
	)

	err := p.db.QueryRowContext(ctx, profileQuery, id).Scan(
		&userID, &gpa, &age, &citizenship, &educationLevel, &academicLevel,
		&fieldOfStudy, &category, &gender, &region, &income, &preferences,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query user %q: %w", id, err)
	}

	raw := matching.RawProfile{
		ID:             userID,
		GPA:            nullFloat(gpa),
		Age:            nullInt(age),
		EducationLevel: nullString(educationLevel),
		AcademicLevel:  nullString(academicLevel),
		FieldOfStudy:   nullString(fieldOfStudy),
		Category:       nullString(category),
		Gender:         nullString(gender),
		Region:         nullString(region),
		Income:         nullFloat(income),
		Citizenship:    nullString(citizenship),
	}
	if len(preferences) > 0 {
		raw.Preferences = []string(preferences)
	}

	profile, err := matching.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", id, err)
	}

	p.logger.Debug("loaded profile from postgres", zap.String("profile_id", profile.ID))
	return profile, nil
}

func nullString(v sql.NullString) any {
	if !v.Valid {
		return nil
	}
	return v.String
}

func nullFloat(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func nullInt(v sql.NullInt64) any {
	if !v.Valid {
		return nil
	}
	return v.Int64
}
