// Package student содержит доменную модель записи студента для Rank Explorer.
//
// Пакет определяет:
//
//   - Сущность Record: регистрационный номер, имя, штат, CGPA и вычисляемый ранг
//   - Конструктор NewRecord с нормализацией и валидацией
//   - Интерфейсы портов: Source (источник данных) и SessionStore (состояние сессии)
//
// # Архитектурные принципы
//
//  1. Записи неизменяемы после загрузки; все операции возвращают копии
//  2. Dependency Inversion - интерфейсы определены здесь, реализации в infrastructure
//  3. Ранг никогда не хранится отдельно, он всегда вычисляется из CGPA
//
// # Пример использования
//
//	rec, err := NewRecord(" 12215678 ", "  Ann Lee ", "Punjab", 9.5)
//	if err != nil {
//	    return err // *shared.ValidationError
//	}
//	// rec.RegistrationID == "12215678", rec.Name == "Ann Lee", rec.Rank == 0
package student
