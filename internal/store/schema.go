package store

const schema = `
CREATE TABLE IF NOT EXISTS monuments (
    id INTEGER PRIMARY KEY,
    asset_id INTEGER,
    name TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    street TEXT NOT NULL DEFAULT '',
    postal_code TEXT NOT NULL DEFAULT '',
    locality TEXT NOT NULL DEFAULT '',
    municipality TEXT NOT NULL DEFAULT '',
    province TEXT NOT NULL DEFAULT '',
    latitude REAL,
    longitude REAL,
    monument_type TEXT NOT NULL DEFAULT '',
    construction_types TEXT NOT NULL DEFAULT '[]',
    classification TEXT NOT NULL DEFAULT '',
    historical_periods TEXT NOT NULL DEFAULT '[]',
    has_image INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME DEFAULT (datetime('now'))
);
`

const queryUpsertMonument = `
INSERT OR REPLACE INTO monuments (
    id, asset_id, name, description, street, postal_code, locality, municipality, province,
    latitude, longitude, monument_type, construction_types, classification, historical_periods,
    has_image, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))`

const querySelectMonuments = `
SELECT id, asset_id, name, description, street, postal_code, locality, municipality, province,
       latitude, longitude, monument_type, construction_types, classification, historical_periods,
       has_image
FROM monuments
ORDER BY id`
