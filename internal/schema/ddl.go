package schema

func GetCategoriesSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS categories (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT
		);
	`
}

func GetProductsSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			brand VARCHAR(255) NOT NULL,
			stock INT NOT NULL,
			price_value DOUBLE PRECISION NOT NULL,
			price_currency VARCHAR(8) NOT NULL,
			categoria_id VARCHAR(255) NOT NULL,
			active BOOLEAN NOT NULL
		);
	`
}

func GetUsersSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(32) NOT NULL,
			role VARCHAR(32) NOT NULL,
			registration_date VARCHAR(10) NOT NULL
		);
	`
}

func GetOrdersSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL,
			total_value DOUBLE PRECISION NOT NULL,
			total_currency VARCHAR(8) NOT NULL
		);
	`
}

func GetOrderItemsSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS order_items (
			order_id VARCHAR(255) NOT NULL,
			line_no INT NOT NULL,
			product_id VARCHAR(255) NOT NULL,
			quantity INT NOT NULL,
			unit_price DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (order_id, line_no)
		);
	`
}

func GetReviewsSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS reviews (
			id VARCHAR(255) PRIMARY KEY,
			product_id VARCHAR(255) NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			rating DOUBLE PRECISION NOT NULL,
			text TEXT NOT NULL
		);
	`
}

// DDL returns the CREATE TABLE statements of the relational mirror.
func DDL() []string {
	return []string{
		GetCategoriesSchema(),
		GetProductsSchema(),
		GetUsersSchema(),
		GetOrdersSchema(),
		GetOrderItemsSchema(),
		GetReviewsSchema(),
	}
}

// Tables maps a collection to the tables holding its documents.
func Tables(collection string) []string {
	if collection == Orders {
		return []string{"order_items", "orders"}
	}
	return []string{collection}
}
