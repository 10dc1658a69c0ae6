package seeders

var equipmentTypesData = []string{
	"Ноутбук",
	"Монитор",
	"Принтер",
	"Телефон",
	"SIM-карта",
	"Тонер",
}

var brandModelsData = map[string][]string{
	"Lenovo":  {"ThinkPad T14", "ThinkPad E15"},
	"Dell":    {"Latitude 5440", "P2422H"},
	"HP":      {"LaserJet Pro M404", "CF259A"},
	"Samsung": {"Galaxy A54"},
}

var locationsData = []string{
	"Главный офис",
	"Склад",
	"Сервисный центр",
}

var demoUsersData = []struct {
	Fio      string
	Email    string
	Position string
}{
	{Fio: "Администратор склада", Email: "admin@inventory.local", Position: "Кладовщик"},
	{Fio: "Иванов Иван Иванович", Email: "ivanov@inventory.local", Position: "Бухгалтер"},
	{Fio: "Петрова Анна Сергеевна", Email: "petrova@inventory.local", Position: "Менеджер"},
}

type demoEquipment struct {
	TypeName     string
	ModelName    string
	SerialNumber string
	Phone        string
	Carrier      string
	Compatible   string
	Quantity     int
}

var demoEquipmentData = []demoEquipment{
	{TypeName: "Ноутбук", ModelName: "ThinkPad T14", SerialNumber: "PF-3X1A9K"},
	{TypeName: "Ноутбук", ModelName: "Latitude 5440", SerialNumber: "DL-88231"},
	{TypeName: "Монитор", ModelName: "P2422H", SerialNumber: "CN-0P2422"},
	{TypeName: "Принтер", ModelName: "LaserJet Pro M404", SerialNumber: "VNB3K12345"},
	{TypeName: "Телефон", ModelName: "Galaxy A54", SerialNumber: "R58T40ABCD"},
	{TypeName: "SIM-карта", Phone: "+992900000001", Carrier: "Tcell"},
	{TypeName: "Тонер", ModelName: "CF259A", Compatible: "LaserJet Pro M404", Quantity: 12},
}
